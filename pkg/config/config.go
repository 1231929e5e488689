// Package config loads retrocausal settings from a TOML file.
//
// Every key is optional; a missing key keeps its default. A typical file:
//
//	[engine]
//	capacity = 30
//	max_pair_age = "30s"
//
//	[view]
//	theme = "dark"
//
//	[feed]
//	url = "https://example.com/trades/{token}"
//	poll_interval = "5s"
//
//	[[tokens]]
//	address = "So11111111111111111111111111111111111111112"
//	symbol = "SOL"
//
// Command-line flags override file values.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/retrocausal/pkg/cache"
	"github.com/matzehuels/retrocausal/pkg/engine"
	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/feed"
	"github.com/matzehuels/retrocausal/pkg/render"
)

const appName = "retrocausal"

// Duration is a time.Duration written as a Go duration string ("250ms").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func dur(v time.Duration) Duration { return Duration{v} }

// Config is the whole file.
type Config struct {
	Engine Engine        `toml:"engine"`
	View   View          `toml:"view"`
	Feed   Feed          `toml:"feed"`
	Render Render        `toml:"render"`
	Server Server        `toml:"server"`
	Cache  Cache         `toml:"cache"`
	Tokens []event.Token `toml:"tokens"`
}

// Engine mirrors engine.Config.
type Engine struct {
	Capacity      int      `toml:"capacity"`
	InboxCap      int      `toml:"inbox_cap"`
	DedupeMemory  int      `toml:"dedupe_memory"`
	MaxPairAge    Duration `toml:"max_pair_age"`
	HitTTL        Duration `toml:"hit_ttl"`
	ArcDuration   Duration `toml:"arc_duration"`
	ArcFade       Duration `toml:"arc_fade"`
	MaxFrameDelta Duration `toml:"max_frame_delta"`
	PatternBins   int      `toml:"pattern_bins"`
	PatternDecay  Duration `toml:"pattern_decay"`
	Seed          uint64   `toml:"seed"`
	FPS           int      `toml:"fps"`
}

// View holds canvas and presentation settings.
type View struct {
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Theme   string `toml:"theme"`
	Grain   bool   `toml:"grain"`
	Labels  bool   `toml:"labels"`
	Pattern bool   `toml:"pattern"`
}

// Feed configures event sources. Empty fields disable their source.
type Feed struct {
	File         string            `toml:"file"`
	Interval     Duration          `toml:"interval"`
	Loop         bool              `toml:"loop"`
	URL          string            `toml:"url"`
	PollInterval Duration          `toml:"poll_interval"`
	Headers      map[string]string `toml:"headers"`
	RedisAddr    string            `toml:"redis_addr"`
	RedisChannel string            `toml:"redis_channel"`
}

// Render configures still-frame output.
type Render struct {
	Format   string   `toml:"format"`
	Scale    float64  `toml:"scale"`
	Duration Duration `toml:"duration"` // simulated replay time before the frame is taken
}

// Server configures the HTTP control surface.
type Server struct {
	Addr string `toml:"addr"`
}

// Cache configures the store for converted PNG and PDF frames. With
// RedisAddr set entries are shared through Redis; otherwise they are files
// under Dir, which defaults to the user cache directory.
type Cache struct {
	Disabled  bool     `toml:"disabled"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

// Default returns the built-in settings.
func Default() *Config {
	ec := engine.DefaultConfig()
	return &Config{
		Engine: Engine{
			Capacity:      ec.Capacity,
			InboxCap:      ec.InboxCap,
			DedupeMemory:  ec.DedupeMemory,
			MaxPairAge:    dur(ec.MaxPairAge),
			HitTTL:        dur(ec.HitTTL),
			ArcDuration:   dur(ec.ArcDuration),
			ArcFade:       dur(ec.ArcFade),
			MaxFrameDelta: dur(ec.MaxFrameDelta),
			PatternBins:   ec.PatternBins,
			PatternDecay:  dur(ec.PatternDecay),
			Seed:          ec.Seed,
			FPS:           engine.DefaultFPS,
		},
		View: View{
			Width:   1200,
			Height:  800,
			Theme:   render.DefaultTheme,
			Grain:   true,
			Pattern: true,
		},
		Feed: Feed{
			Interval:     dur(250 * time.Millisecond),
			PollInterval: dur(feed.DefaultPollInterval),
			RedisChannel: feed.DefaultChannel,
		},
		Render: Render{
			Format:   string(render.FormatSVG),
			Scale:    2,
			Duration: dur(3 * time.Second),
		},
		Server: Server{Addr: "127.0.0.1:8080"},
		Cache:  Cache{TTL: dur(cache.DefaultTTL)},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/retrocausal/config.toml, falling back
// to the user config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(dir, appName, "config.toml")
}

// Load reads path over the defaults and validates the result.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "config %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads DefaultPath if it exists and returns Default otherwise.
func LoadDefault() (*Config, error) {
	path := DefaultPath()
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.EngineConfig().Validate(); err != nil {
		return err
	}
	if c.Engine.FPS < 0 || c.Engine.FPS > 240 {
		return errors.New(errors.ErrCodeInvalidConfig, "fps must be in [0, 240], got %d", c.Engine.FPS)
	}
	if c.View.Width < 0 || c.View.Height < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "view size must not be negative")
	}
	if _, err := render.ThemeByName(c.View.Theme); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "view.theme")
	}
	if c.Feed.URL != "" {
		if err := errors.ValidateURL(c.Feed.URL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "feed.url")
		}
	}
	if c.Feed.Interval.Duration < 0 || c.Feed.PollInterval.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "feed intervals must not be negative")
	}
	if c.Feed.Loop && c.Feed.Interval.Duration == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "feed.loop requires a positive feed.interval")
	}
	if _, err := render.ParseFormat(c.Render.Format); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "render.format")
	}
	if c.Render.Scale <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "render.scale must be positive")
	}
	if c.Render.Duration.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "render.duration must not be negative")
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	for i, tok := range c.Tokens {
		if err := errors.ValidateTokenAddress(tok.Address); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "tokens[%d]", i)
		}
		if tok.Symbol != "" {
			if err := errors.ValidateSymbol(tok.Symbol); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "tokens[%d]", i)
			}
		}
	}
	return nil
}

// EngineConfig converts the engine section.
func (c *Config) EngineConfig() engine.Config {
	e := c.Engine
	return engine.Config{
		Capacity:      e.Capacity,
		InboxCap:      e.InboxCap,
		DedupeMemory:  e.DedupeMemory,
		MaxPairAge:    e.MaxPairAge.Duration,
		HitTTL:        e.HitTTL.Duration,
		ArcDuration:   e.ArcDuration.Duration,
		ArcFade:       e.ArcFade.Duration,
		MaxFrameDelta: e.MaxFrameDelta.Duration,
		PatternBins:   e.PatternBins,
		PatternDecay:  e.PatternDecay.Duration,
		Seed:          e.Seed,
	}
}

// RenderOptions returns the SVG options implied by the view section.
// The theme is assumed valid.
func (c *Config) RenderOptions() []render.Option {
	theme, _ := render.ThemeByName(c.View.Theme)
	opts := []render.Option{
		render.WithTheme(theme),
		render.WithGrain(c.View.Grain),
		render.WithPattern(c.View.Pattern),
	}
	if c.View.Labels {
		opts = append(opts, render.WithLabels())
	}
	return opts
}
