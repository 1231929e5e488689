// Package pkg provides the core libraries for Retrocausal.
//
// # Overview
//
// Retrocausal turns a token's market activity into a delayed-choice quantum
// eraser. Every trade or market snapshot spawns an entangled photon pair at
// the LASER; the signal photon lands at D0 while its idler travels on to D1
// (erased) or D2 (which-path), and the interference pattern at D0 builds up
// over time. The pkg directory is organized by stage:
//
//  1. [event] - Source events and their JSON wire format
//  2. [feed] - Sources that stage events: replay files, HTTP polling, Redis pub/sub
//  3. [photon], [engine] - Pair construction and the animation state machine
//  4. [nodegraph], [view] - The diagram layout and the pan/zoom transform
//  5. [render] - SVG, terminal and PNG/PDF output
//
// # Architecture
//
// The typical data flow:
//
//	Replay file / HTTP endpoint / Redis channel
//	         ↓
//	    [feed] package (decode records, stage events)
//	         ↓
//	    [engine] package (spawn pairs, advance, land, retire)
//	         ↓
//	    [engine.Frame] (immutable snapshot)
//	         ↓
//	    [render] or [render/ascii] (through a [view.View])
//
// # Quick Start
//
// Replay a file and render the frame after three seconds:
//
//	import (
//	    "time"
//	    "github.com/matzehuels/retrocausal/pkg/engine"
//	    "github.com/matzehuels/retrocausal/pkg/feed"
//	    "github.com/matzehuels/retrocausal/pkg/render"
//	    "github.com/matzehuels/retrocausal/pkg/view"
//	)
//
//	// 1. Load events
//	events, _ := (&feed.FileSource{Path: "trades.ndjson"}).Load()
//
//	// 2. Feed and step the engine
//	eng := engine.New(engine.WithSize(1200, 800))
//	start := time.Now()
//	for _, ev := range events {
//	    eng.Feed(feed.Restamp(ev, start))
//	}
//	for t := start; t.Before(start.Add(3 * time.Second)); t = t.Add(time.Second / 60) {
//	    eng.Tick(t)
//	}
//
//	// 3. Render to SVG
//	svg := render.SVG(eng.Snapshot(), view.New(1200, 800), render.WithLabels())
//
// # Main Packages
//
// [engine] - The single-writer state machine. [engine.Loop] drives it from a
// ticker and serializes selection, resize and reset commands between ticks.
//
// [photon] - Pair factory: path choice, speed decay with event age, size
// from trade magnitude.
//
// [feed] - Event sources with a shared [feed.Run] fan-in.
//
// [cache] - Content-addressed store for converted PNG and PDF frames.
//
// [config] - TOML configuration with command-line overrides.
//
// [errors] - Coded errors with HTTP status mapping and input validation.
//
// [observability] - Hook registry for engine, feed and HTTP events.
//
// [event]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/event
// [feed]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/feed
// [feed.Run]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/feed#Run
// [photon]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/photon
// [engine]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/engine
// [engine.Frame]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/engine#Frame
// [engine.Loop]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/engine#Loop
// [nodegraph]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/nodegraph
// [view]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/view
// [view.View]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/view#View
// [render]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/render
// [render/ascii]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/render/ascii
// [cache]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/retrocausal/pkg/observability
package pkg
