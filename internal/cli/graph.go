package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/nodegraph"
)

// graphCommand creates the graph command, which exports the node diagram.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format string
		output string
		width  float64
		height float64
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the node diagram as DOT or SVG",
		Long: `Export the node diagram as Graphviz DOT, or as SVG rendered through Graphviz.

Node positions are those of the animation layout on a --width x --height canvas.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := exportGraph(format, width, height)
			if err != nil {
				return err
			}
			if output == "" {
				return writeTo(cmd.OutOrStdout(), data)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "write %s", output)
			}
			printSuccess("Exported node graph")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().Float64Var(&width, "width", 1200, "canvas width")
	cmd.Flags().Float64Var(&height, "height", 800, "canvas height")

	return cmd
}

func exportGraph(format string, width, height float64) ([]byte, error) {
	layout := nodegraph.Compute(width, height)
	if !layout.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "canvas %gx%g is not drawable", width, height)
	}
	dot := nodegraph.ToDOT(layout)
	switch format {
	case "dot":
		return []byte(dot), nil
	case "svg":
		return nodegraph.RenderSVG(dot)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q (want dot or svg)", format)
	}
}

func writeTo(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
