package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/retrocausal/pkg/buildinfo"
	"github.com/matzehuels/retrocausal/pkg/config"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Retrocausal animates market activity as a delayed-choice quantum eraser",
		Long: `Retrocausal turns a token's trades and market snapshots into entangled photon
pairs flying through a delayed-choice quantum eraser diagram. Each trade spawns
a pair; its idler reaches D1 (erased) or D2 (which-path) after the signal has
already landed at D0, and the interference pattern at D0 builds up over time.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "",
		fmt.Sprintf("config file (default %s)", config.DefaultPath()))
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.watchCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := buildinfo.Get()
			w := cmd.OutOrStdout()
			printKeyValueTo(w, "version", info.Version)
			printKeyValueTo(w, "commit", info.Commit)
			printKeyValueTo(w, "built", info.Date)
			printKeyValueTo(w, "go", info.Go)
		},
	}
}
