package nodegraph

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"
)

// dotShapes maps node categories to Graphviz shapes.
var dotShapes = map[Category]string{
	CategoryLaser:     "box",
	CategoryEntangler: "diamond",
	CategorySplitter:  "square",
	CategoryDetector:  "circle",
	CategoryEngine:    "hexagon",
}

// ToDOT converts a layout to Graphviz DOT. Node positions are pinned so the
// export matches the on-canvas diagram; neato reads pos in inches with the
// y axis pointing up.
func ToDOT(l Layout) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fillcolor=white, fontsize=12, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	for _, n := range l.Nodes() {
		x := n.Pos.X / 72
		y := (l.Height - n.Pos.Y) / 72
		fmt.Fprintf(&buf, "  %q [shape=%s, label=%q, tooltip=%q, pos=\"%.3f,%.3f!\"];\n",
			string(n.Name), dotShapes[n.Category], string(n.Name), n.Category.String(), x, y)
	}

	buf.WriteString("\n")
	for _, r := range rails {
		fmt.Fprintf(&buf, "  %q -- %q;\n", string(r.From), string(r.To))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
