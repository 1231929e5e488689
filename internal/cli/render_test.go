package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/retrocausal/pkg/engine"
	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/render"
)

func trades(n int) []event.Event {
	out := make([]event.Event, n)
	for i := range out {
		out[i] = event.FromTrade(event.Trade{
			Signature: "sig-" + string(rune('a'+i)),
			Side:      event.SideBuy,
			Amount:    float64(10 * (i + 1)),
		})
	}
	return out
}

func TestReplayFeedsOnSchedule(t *testing.T) {
	tests := []struct {
		name     string
		events   int
		duration time.Duration
		interval time.Duration
		wantFed  int
	}{
		{"all at once", 5, time.Second, 0, 5},
		{"paced", 5, time.Second, 300 * time.Millisecond, 4},
		{"too short", 5, 0, time.Second, 1},
		{"empty", 0, time.Second, time.Millisecond, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := engine.New(engine.WithSize(800, 600))
			r := replay{Start: time.Unix(1_700_000_000, 0), Duration: tt.duration, Interval: tt.interval, FPS: 60}
			frame, fed := r.Run(eng, trades(tt.events))
			if fed != tt.wantFed {
				t.Errorf("fed = %d, want %d", fed, tt.wantFed)
			}
			if got := int(frame.Stats.Spawned); got != tt.wantFed {
				t.Errorf("spawned = %d, want %d", got, tt.wantFed)
			}
		})
	}
}

func TestReplayRestamps(t *testing.T) {
	eng := engine.New(engine.WithSize(800, 600))
	start := time.Unix(1_700_000_000, 0)
	r := replay{Start: start, Duration: 50 * time.Millisecond, Interval: 0, FPS: 60}
	frame, _ := r.Run(eng, trades(1))
	if frame.Time.Before(start) || frame.Time.After(start.Add(50*time.Millisecond)) {
		t.Errorf("frame time %v outside the simulated window", frame.Time)
	}
	if frame.Stats.Live != 1 {
		t.Errorf("live = %d, want 1", frame.Stats.Live)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		output, input string
		format        render.Format
		want          string
	}{
		{"", "trades.ndjson", render.FormatSVG, "trades.svg"},
		{"", "dir/trades.json", render.FormatPNG, "dir/trades.png"},
		{"", "noext", render.FormatPDF, "noext.pdf"},
		{"out.svg", "trades.json", render.FormatSVG, "out.svg"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.output, tt.input, tt.format); got != tt.want {
			t.Errorf("outputPath(%q, %q, %s) = %q, want %q", tt.output, tt.input, tt.format, got, tt.want)
		}
	}
}

func TestRenderCommandWritesSVG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	input := filepath.Join(dir, "trades.ndjson")
	records := `{"signature":"a","side":"buy","amount":5}
{"signature":"b","side":"sell","amount":50}
`
	if err := os.WriteFile(input, []byte(records), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "frame.svg")

	root := newTestCLI().RootCommand()
	root.SetArgs([]string{"render", input, "-o", output, "--duration", "500ms", "--interval", "100ms", "--labels"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	svg := string(data)
	if !strings.HasPrefix(svg, "<svg") || !strings.Contains(svg, `id="scene"`) {
		t.Errorf("unexpected output: %.80s", svg)
	}
	if !strings.Contains(svg, "ENGINE") {
		t.Error("labels missing from output")
	}
}

func TestRenderCommandErrors(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	input := filepath.Join(dir, "trades.ndjson")
	if err := os.WriteFile(input, []byte(`{"signature":"a"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"render", filepath.Join(dir, "absent.json")}},
		{"bad format", []string{"render", input, "--format", "gif"}},
		{"bad theme", []string{"render", input, "--theme", "neon"}},
		{"bad token", []string{"render", input, "--token", "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestCLI().RootCommand()
			root.SetArgs(tt.args)
			if err := root.ExecuteContext(context.Background()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
