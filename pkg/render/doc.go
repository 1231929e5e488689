// Package render draws engine frames.
//
// # Overview
//
// This package turns an [engine.Frame] seen through a [view.View] into
// visual output. It provides:
//
//   - SVG frames ([SVG]) with functional options for grain, labels,
//     the interference pattern and the color theme
//   - Generic format conversion (SVG to PDF/PNG)
//   - Terminal rasterization (in the [ascii] subpackage)
//
// Rendering only reads the frame. Frames are deep copies, so a frame can be
// rendered on any goroutine while the engine keeps ticking.
//
// # SVG Frames
//
// Layers are drawn in a fixed order: background, film grain (offset by the
// hover parallax), then inside a single pan/zoom group the rails, node
// glyphs (with a breathing pulse on ENGINE), the D0 interference histogram,
// photon trails and photons, and arcs.
//
//	svg := render.SVG(frame, v, render.WithLabels())
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
// [engine.Frame]: github.com/matzehuels/retrocausal/pkg/engine#Frame
// [view.View]: github.com/matzehuels/retrocausal/pkg/view#View
// [ascii]: github.com/matzehuels/retrocausal/pkg/render/ascii
package render
