// Package photon models the particles that travel across the node diagram.
//
// Every source event becomes one [Pair]: a signal photon that runs the short
// fixed path to the primary detector and an idler photon that takes either
// the which-path or the erased route. [Factory] derives each photon's size,
// speed and trail length from the event; [Photon.Advance] moves a photon one
// frame forward.
//
// Photons never store node positions as truth. Every frame the current
// layout is passed in and the drawn position is re-interpolated between the
// current and next node, so a resized canvas moves photons along with the
// nodes instead of stranding them.
package photon

import (
	"math"
	"time"

	"github.com/matzehuels/retrocausal/pkg/nodegraph"
)

// ProgressPerMs is the segment progress gained per millisecond at speed 1.
// A segment takes roughly 830ms at unit speed.
const ProgressPerMs = 0.0012

// TrailTTL is how long a trail point stays visible; opacity decays linearly.
const TrailTTL = time.Second

// Role distinguishes the two photons of a pair.
type Role int

const (
	RoleSignal Role = iota
	RoleIdler
)

func (r Role) String() string {
	if r == RoleSignal {
		return "signal"
	}
	return "idler"
}

// TrailPoint is one recorded position in a photon's trail.
type TrailPoint struct {
	Pos nodegraph.Point
	At  time.Time
}

// Opacity returns the point's opacity at now, in [0, 1].
func (tp TrailPoint) Opacity(now time.Time) float64 {
	age := now.Sub(tp.At)
	if age <= 0 {
		return 1
	}
	return max(0, 1-float64(age)/float64(TrailTTL))
}

// Photon is one leg of a pair travelling along a fixed path.
type Photon struct {
	ID       string
	Role     Role
	Path     []nodegraph.Name
	Index    int     // current node; always within [0, len(Path)-1]
	Progress float64 // fraction of the current segment, [0, 1)

	Size     float64
	Speed    float64
	Slippage float64
	TrailLen int

	Pos    nodegraph.Point // drawn position
	Target nodegraph.Point // next node position
	Trail  []TrailPoint
}

// Terminal reports whether the photon has reached the last node of its path.
func (p *Photon) Terminal() bool {
	return p.Index >= len(p.Path)-1
}

// Current returns the node the photon last passed.
func (p *Photon) Current() nodegraph.Name {
	return p.Path[p.Index]
}

// Last returns the terminal node of the photon's path.
func (p *Photon) Last() nodegraph.Name {
	return p.Path[len(p.Path)-1]
}

// Advance moves the photon forward by dt and records its trail.
// It reports true exactly once, on the call that lands the photon on its
// terminal node. Terminal photons are not advanced further; their trail
// keeps fading.
func (p *Photon) Advance(l nodegraph.Layout, dt time.Duration, now time.Time) (arrived bool) {
	if !p.Terminal() {
		ms := float64(dt) / float64(time.Millisecond)
		p.Progress += p.Speed * ms * ProgressPerMs
		if p.Progress >= 1 {
			p.Index++
			p.Progress = 0
			arrived = p.Terminal()
		}
	}

	p.Place(l)
	if !p.Terminal() || arrived {
		p.record(now)
	}
	p.fade(now)
	return arrived
}

// Place recomputes the drawn and target positions from the layout.
func (p *Photon) Place(l nodegraph.Layout) {
	from := l.Pos(p.Path[p.Index])
	if p.Terminal() {
		p.Pos, p.Target = from, from
		return
	}
	p.Target = l.Pos(p.Path[p.Index+1])
	p.Pos = from.Lerp(p.Target, EaseOutCubic(p.Progress))
}

// Rescale moves recorded trail points when the canvas is resized so trails
// stay attached to the diagram.
func (p *Photon) Rescale(sx, sy float64) {
	for i := range p.Trail {
		p.Trail[i].Pos.X *= sx
		p.Trail[i].Pos.Y *= sy
	}
}

// Clone returns a deep copy safe to hand to renderers.
func (p *Photon) Clone() *Photon {
	c := *p
	c.Path = append([]nodegraph.Name(nil), p.Path...)
	c.Trail = append([]TrailPoint(nil), p.Trail...)
	return &c
}

func (p *Photon) record(now time.Time) {
	p.Trail = append(p.Trail, TrailPoint{Pos: p.Pos, At: now})
	if n := len(p.Trail) - max(p.TrailLen, 1); n > 0 {
		p.Trail = append(p.Trail[:0], p.Trail[n:]...)
	}
}

func (p *Photon) fade(now time.Time) {
	i := 0
	for i < len(p.Trail) && now.Sub(p.Trail[i].At) >= TrailTTL {
		i++
	}
	if i > 0 {
		p.Trail = append(p.Trail[:0], p.Trail[i:]...)
	}
}

// EaseOutCubic maps linear progress t in [0, 1] to an ease-out curve.
func EaseOutCubic(t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	u := 1 - t
	return 1 - u*u*u
}
