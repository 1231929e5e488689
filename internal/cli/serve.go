package cli

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/retrocausal/internal/server"
	"github.com/matzehuels/retrocausal/pkg/config"
	"github.com/matzehuels/retrocausal/pkg/engine"
	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/feed"
)

// serveCommand creates the serve command, the HTTP control surface.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags feedFlags
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine behind an HTTP control surface",
		Long: `Run the engine behind an HTTP control surface.

Endpoints:
  GET  /healthz              build information
  GET  /frame.svg            the latest frame through the server's view
  GET  /frame.txt            the latest frame as text (?cols=&rows=)
  GET  /stats                engine counters and the selected token
  GET  /hover?x=&y=          the node under a screen point
  POST /events               stage records (JSON array or NDJSON)
  POST /select               select a token {"address": ...}
  POST /resize               resize the canvas {"width": ..., "height": ...}
  POST /view/pan             {"dx": ..., "dy": ...}
  POST /view/wheel           {"delta_y": ..., "x": ..., "y": ...}
  POST /view/zoom-in, /view/zoom-out, /view/reset, /view/leave`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			start, err := initialToken(cfg, flags.token)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg, start)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", config.Default().Server.Addr, "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg *config.Config, start event.Token) error {
	logger := loggerFromContext(ctx)

	eng := engine.New(
		engine.WithConfig(cfg.EngineConfig()),
		engine.WithSize(float64(cfg.View.Width), float64(cfg.View.Height)),
		engine.WithLogger(logger),
	)
	if !start.IsZero() {
		eng.Select(start)
	}
	loop := engine.NewLoop(eng, engine.WithFPS(cfg.Engine.FPS))
	srv := server.New(loop,
		server.WithLogger(logger),
		server.WithRenderOptions(cfg.RenderOptions()...),
	)
	srcs := buildSources(cfg, logger, func() string { return loop.Frame().Token.Address })
	defer srcs.Close()

	printInfo("Serving on http://%s", cfg.Server.Addr)
	if len(srcs.list) == 0 {
		printInfo("No feeds configured; POST records to /events")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Server.Addr) })
	g.Go(func() error { return feed.Run(ctx, loop, srcs.list...) })
	return g.Wait()
}
