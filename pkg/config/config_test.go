package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/retrocausal/pkg/cache"
	"github.com/matzehuels/retrocausal/pkg/engine"
	"github.com/matzehuels/retrocausal/pkg/errors"
)

const sol = "So11111111111111111111111111111111111111112"

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := cfg.EngineConfig(); got != engine.DefaultConfig() {
		t.Errorf("EngineConfig() = %+v, want engine defaults", got)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := write(t, `
[engine]
capacity = 12
max_pair_age = "45s"
hit_ttl = "750ms"

[view]
theme = "light"
labels = true

[feed]
url = "https://feed.example/trades/{token}"
headers = { "X-Api-Key" = "secret" }

[cache]
redis_addr = "localhost:6379"

[[tokens]]
address = "`+sol+`"
symbol = "SOL"

[[tokens]]
address = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ec := cfg.EngineConfig()
	if ec.Capacity != 12 || ec.MaxPairAge != 45*time.Second || ec.HitTTL != 750*time.Millisecond {
		t.Errorf("engine = %+v", ec)
	}
	if ec.InboxCap != engine.DefaultInboxCap {
		t.Errorf("unset key lost its default: inbox_cap = %d", ec.InboxCap)
	}
	if cfg.View.Theme != "light" || !cfg.View.Labels || !cfg.View.Grain {
		t.Errorf("view = %+v", cfg.View)
	}
	if cfg.Feed.Headers["X-Api-Key"] != "secret" {
		t.Errorf("headers = %v", cfg.Feed.Headers)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" || cfg.Cache.TTL.Duration != cache.DefaultTTL {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if len(cfg.Tokens) != 2 || cfg.Tokens[0].Symbol != "SOL" || cfg.Tokens[1].Symbol != "" {
		t.Errorf("tokens = %+v", cfg.Tokens)
	}
	if n := len(cfg.RenderOptions()); n != 4 {
		t.Errorf("RenderOptions() = %d options, want 4 with labels", n)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.Code
	}{
		{"syntax", "[engine\n", errors.ErrCodeInvalidConfig},
		{"unknown key", "[engine]\ncapcity = 3\n", errors.ErrCodeInvalidConfig},
		{"bad duration", "[engine]\nhit_ttl = \"soon\"\n", errors.ErrCodeInvalidConfig},
		{"negative capacity", "[engine]\ncapacity = -1\n", errors.ErrCodeInvalidConfig},
		{"too many bins", "[engine]\npattern_bins = 4096\n", errors.ErrCodeInvalidConfig},
		{"fps", "[engine]\nfps = 1000\n", errors.ErrCodeInvalidConfig},
		{"theme", "[view]\ntheme = \"neon\"\n", errors.ErrCodeInvalidConfig},
		{"feed url", "[feed]\nurl = \"ftp://x\"\n", errors.ErrCodeInvalidConfig},
		{"loop without interval", "[feed]\nloop = true\ninterval = \"0s\"\n", errors.ErrCodeInvalidConfig},
		{"format", "[render]\nformat = \"gif\"\n", errors.ErrCodeInvalidConfig},
		{"scale", "[render]\nscale = 0.0\n", errors.ErrCodeInvalidConfig},
		{"cache ttl", "[cache]\nttl = \"-1s\"\n", errors.ErrCodeInvalidConfig},
		{"token address", "[[tokens]]\naddress = \"nope\"\n", errors.ErrCodeInvalidConfig},
		{"token symbol", "[[tokens]]\naddress = \"" + sol + "\"\nsymbol = \"TOO LONG\"\n", errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.content))
			if !errors.Is(err, tt.code) {
				t.Errorf("Load() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Load(absent) = %v, want NOT_FOUND", err)
	}
	if _, err := Load(""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Load(\"\") = %v, want INVALID_INPUT", err)
	}
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	want := filepath.Join(dir, "retrocausal", "config.toml")
	if got := DefaultPath(); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}

	cfg, err := LoadDefault()
	if err != nil || cfg.View.Theme != "dark" {
		t.Fatalf("LoadDefault() without file = %+v, %v", cfg, err)
	}

	if err := os.MkdirAll(filepath.Dir(want), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(want, []byte("[view]\ntheme = \"light\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadDefault()
	if err != nil || cfg.View.Theme != "light" {
		t.Errorf("LoadDefault() with file = %+v, %v", cfg.View, err)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil || d.Duration != 90*time.Second {
		t.Fatalf("UnmarshalText = %v, %v", d, err)
	}
	b, _ := d.MarshalText()
	if string(b) != "1m30s" {
		t.Errorf("MarshalText = %q", b)
	}
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "examples", "config.toml"))
	if err != nil {
		t.Fatalf("Load(example) = %v", err)
	}
	if len(cfg.Tokens) != 2 || !cfg.Feed.Loop || cfg.Render.Duration.Duration != 4*time.Second {
		t.Errorf("example config = %+v", cfg)
	}
}
