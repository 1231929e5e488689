// Package nodegraph defines the fixed node diagram photons travel across.
//
// The diagram is a delayed-choice eraser bench: a laser pumps an entangler
// (BBO), the signal photon goes straight to the primary detector D0, and the
// idler photon crosses one or two beam splitters before landing on a
// which-path detector (D2) or an erased detector (D1). An aggregation node
// (ENGINE) collects coincidences from all detectors.
//
// # Layout
//
// Node positions are never stored. [Compute] is a pure function of the
// canvas size and is called once per frame, so resizing the canvas simply
// moves every node proportionally:
//
//	l := nodegraph.Compute(800, 600)
//	p := l.Pos(nodegraph.D0) // {400, 120}
//
// # Paths
//
// Photons follow one of three fixed paths ([SignalPath], [WhichPath],
// [ErasedPath]); each is an ordered list of node names beginning at the
// laser.
//
// # Graphviz Export
//
// [ToDOT] and [RenderSVG] export the diagram through Graphviz for
// documentation and debugging:
//
//	dot := nodegraph.ToDOT(nodegraph.Compute(800, 600))
//	svg, err := nodegraph.RenderSVG(dot)
package nodegraph
