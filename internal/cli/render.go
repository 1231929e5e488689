package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/retrocausal/pkg/config"
	"github.com/matzehuels/retrocausal/pkg/engine"
	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/feed"
	"github.com/matzehuels/retrocausal/pkg/render"
	"github.com/matzehuels/retrocausal/pkg/view"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string        // output file path; derived from the input when empty
	format   string        // svg, png or pdf
	width    float64       // canvas width in pixels
	height   float64       // canvas height in pixels
	duration time.Duration // simulated time before the frame is taken
	interval time.Duration // simulated time between replayed records
	scale    float64       // PNG scale factor
	theme    string
	labels   bool
	token    string
	noCache  bool
}

// renderCommand creates the render command, which replays a record file
// offline and writes the final frame.
func (c *CLI) renderCommand() *cobra.Command {
	d := config.Default()
	opts := renderOpts{
		format:   d.Render.Format,
		width:    float64(d.View.Width),
		height:   float64(d.View.Height),
		duration: d.Render.Duration.Duration,
		interval: d.Feed.Interval.Duration,
		scale:    d.Render.Scale,
		theme:    d.View.Theme,
	}

	cmd := &cobra.Command{
		Use:   "render [events]",
		Short: "Replay a record file and write the final frame",
		Long: `Replay a record file and write the final frame.

The records are fed to the engine one per --interval of simulated time,
stamped with that time, and the engine is stepped at 60 frames per second
until --duration has elapsed. The last frame is written as SVG, or as PNG
or PDF through rsvg-convert.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input name with the format extension)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg, png, pdf")
	cmd.Flags().Float64Var(&opts.width, "width", opts.width, "canvas width")
	cmd.Flags().Float64Var(&opts.height, "height", opts.height, "canvas height")
	cmd.Flags().DurationVar(&opts.duration, "duration", opts.duration, "simulated replay time")
	cmd.Flags().DurationVar(&opts.interval, "interval", opts.interval, "simulated time between records")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	cmd.Flags().StringVar(&opts.theme, "theme", opts.theme, fmt.Sprintf("color theme: %s", strings.Join(render.ThemeNames(), ", ")))
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "draw node labels")
	cmd.Flags().StringVar(&opts.token, "token", "", "only replay records for this token")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "convert even if a cached PNG or PDF exists")

	cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{string(render.FormatSVG), string(render.FormatPNG), string(render.FormatPDF)}, cobra.ShellCompDirectiveNoFileComp))
	cmd.RegisterFlagCompletionFunc("theme", cobra.FixedCompletions(render.ThemeNames(), cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

// apply copies set flags over the config.
func (o *renderOpts) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("format") {
		cfg.Render.Format = o.format
	}
	if fs.Changed("width") {
		cfg.View.Width = int(o.width)
	}
	if fs.Changed("height") {
		cfg.View.Height = int(o.height)
	}
	if fs.Changed("duration") {
		cfg.Render.Duration.Duration = o.duration
	}
	if fs.Changed("interval") {
		cfg.Feed.Interval.Duration = o.interval
	}
	if fs.Changed("scale") {
		cfg.Render.Scale = o.scale
	}
	if fs.Changed("theme") {
		cfg.View.Theme = o.theme
	}
	if fs.Changed("labels") {
		cfg.View.Labels = o.labels
	}
	if o.noCache {
		cfg.Cache.Disabled = true
	}
}

func (c *CLI) runRender(ctx context.Context, input string, cfg *config.Config, opts renderOpts) error {
	logger := loggerFromContext(ctx)
	sw := startStopwatch(logger)

	format, err := render.ParseFormat(cfg.Render.Format)
	if err != nil {
		return err
	}
	events, err := (&feed.FileSource{Path: input, Logger: logger}).Load()
	if err != nil {
		return err
	}
	logger.Debugf("Loaded %d records from %s", len(events), input)

	start, err := initialToken(cfg, opts.token)
	if err != nil {
		return err
	}
	w, h := float64(cfg.View.Width), float64(cfg.View.Height)
	eng := engine.New(
		engine.WithConfig(cfg.EngineConfig()),
		engine.WithSize(w, h),
		engine.WithLogger(logger),
	)
	if !start.IsZero() {
		eng.Select(start)
	}

	r := replay{
		Start:    time.Now(),
		Duration: cfg.Render.Duration.Duration,
		Interval: cfg.Feed.Interval.Duration,
		FPS:      cfg.Engine.FPS,
	}
	frame, fed := r.Run(eng, events)
	sw.donef("Replayed %d of %d records", fed, len(events))

	svg := render.SVG(frame, view.New(w, h), cfg.RenderOptions()...)
	data := svg
	if format != render.FormatSVG {
		store, closeStore := openCache(cfg.Cache, logger)
		defer closeStore()

		spinner := newSpinner(ctx, fmt.Sprintf("Rendering %s...", format))
		spinner.Start()
		var cached bool
		data, cached, err = convertCached(ctx, store, cfg, svg, format, logger, spinner.SetMessage)
		if err != nil {
			spinner.StopWithError("Conversion failed")
			return err
		}
		spinner.Stop()
		if cached {
			logger.Debug("Conversion served from cache", "format", format)
		}
	}

	path := outputPath(opts.output, input, format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	printSuccess("Rendered %s", format)
	printFile(path)
	printStats(frame.Stats)
	if format == render.FormatSVG {
		printNextStep("Watch it live", fmt.Sprintf("%s watch --file %s", appName, input))
	}
	return nil
}

// outputPath derives the output file from the input when none is given.
func outputPath(output, input string, f render.Format) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + string(f)
}

// replay steps an engine through simulated time.
type replay struct {
	Start    time.Time
	Duration time.Duration
	Interval time.Duration
	FPS      int
}

// Run feeds events at Start, Start+Interval, ... restamped to the
// simulated time, ticking the engine every frame until Duration has passed.
// It returns the final frame and how many events were fed.
func (r replay) Run(eng *engine.Engine, events []event.Event) (*engine.Frame, int) {
	fps := r.FPS
	if fps <= 0 {
		fps = engine.DefaultFPS
	}
	step := time.Second / time.Duration(fps)
	end := r.Start.Add(r.Duration)

	fed := 0
	for now := r.Start; !now.After(end); now = now.Add(step) {
		for fed < len(events) && !r.Start.Add(time.Duration(fed)*r.Interval).After(now) {
			eng.Feed(feed.Restamp(events[fed], now))
			fed++
		}
		eng.Tick(now)
	}
	return eng.Snapshot(), fed
}
