package engine

import (
	"time"

	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/nodegraph"
	"github.com/matzehuels/retrocausal/pkg/photon"
)

// Frame is an immutable copy of engine state at one tick. Renderers read
// frames; nothing in a frame aliases live engine state.
type Frame struct {
	Time    time.Time
	Layout  nodegraph.Layout
	Token   event.Token
	Pairs   []*photon.Pair
	Hits    []Hit
	Arcs    []Arc
	Pattern []float64 // D0 interference histogram
	HitTTL  time.Duration
	Stats   Stats
}

// Valid reports whether the frame has a drawable canvas.
func (f *Frame) Valid() bool { return f != nil && f.Layout.Valid() }

// Photons returns every photon in the frame, signals before idlers per pair.
func (f *Frame) Photons() []*photon.Photon {
	out := make([]*photon.Photon, 0, 2*len(f.Pairs))
	for _, p := range f.Pairs {
		out = append(out, p.Signal, p.Idler)
	}
	return out
}

// HitsAt returns the combined pulse strength of live hits on a detector.
func (f *Frame) HitsAt(name nodegraph.Name) float64 {
	var s float64
	for _, h := range f.Hits {
		if h.Detector == name {
			s += h.Intensity * h.Opacity(f.Time, f.HitTTL)
		}
	}
	return min(s, 1)
}
