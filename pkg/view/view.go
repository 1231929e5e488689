// Package view holds the pan/zoom state applied on top of the node diagram.
//
// The transform scales about the canvas center and then translates:
//
//	screen = (world - center) * zoom + center + pan
//
// Every input is clamped rather than rejected. Zoom stays within
// [MinZoom, MaxZoom] and pan stays within PanLimit of the canvas size in
// each axis, re-clamped after every change.
package view

import (
	"math"

	"github.com/matzehuels/retrocausal/pkg/nodegraph"
)

const (
	MinZoom     = 0.1
	MaxZoom     = 5.0
	ZoomStep    = 1.2  // factor for ZoomIn and ZoomOut
	WheelStep   = 1.1  // factor per wheel notch
	PanLimit    = 0.3  // fraction of the canvas size
	MaxParallax = 8.0  // hover parallax offset, in pixels
	HitRadius   = 18.0 // screen-space radius for NodeAt
)

// View is the input controller's state. It is not safe for concurrent use.
type View struct {
	Width, Height float64
	Zoom          float64
	PanX, PanY    float64

	hover    nodegraph.Point
	hovering bool
}

// New returns an identity view for a w×h canvas.
func New(w, h float64) *View {
	return &View{Width: w, Height: h, Zoom: 1}
}

func (v *View) center() nodegraph.Point {
	return nodegraph.Point{X: v.Width / 2, Y: v.Height / 2}
}

// Pan moves the view by a screen-space delta, as from a mouse drag.
func (v *View) Pan(dx, dy float64) {
	v.PanX += finite(dx)
	v.PanY += finite(dy)
	v.clamp()
}

// ZoomAt scales the zoom by factor, keeping the screen point (px, py)
// over the same world point when the pan bounds allow.
func (v *View) ZoomAt(factor, px, py float64) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return
	}
	p := nodegraph.Point{X: finite(px), Y: finite(py)}
	w := v.ToWorld(p)
	c := v.center()

	v.Zoom = clampZoom(v.Zoom * factor)
	v.PanX = p.X - c.X - (w.X-c.X)*v.Zoom
	v.PanY = p.Y - c.Y - (w.Y-c.Y)*v.Zoom
	v.clamp()
}

// Wheel zooms at the pointer: negative deltaY zooms in, positive zooms out.
func (v *View) Wheel(deltaY, px, py float64) {
	switch {
	case deltaY < 0:
		v.ZoomAt(WheelStep, px, py)
	case deltaY > 0:
		v.ZoomAt(1/WheelStep, px, py)
	}
}

// ZoomIn zooms in one step about the canvas center.
func (v *View) ZoomIn() {
	c := v.center()
	v.ZoomAt(ZoomStep, c.X, c.Y)
}

// ZoomOut zooms out one step about the canvas center.
func (v *View) ZoomOut() {
	c := v.center()
	v.ZoomAt(1/ZoomStep, c.X, c.Y)
}

// Reset restores the identity transform.
func (v *View) Reset() {
	v.Zoom = 1
	v.PanX, v.PanY = 0, 0
}

// Resize updates the canvas size and re-clamps the pan.
func (v *View) Resize(w, h float64) {
	v.Width, v.Height = w, h
	v.clamp()
}

// Hover records the pointer position for parallax.
func (v *View) Hover(px, py float64) {
	v.hover = nodegraph.Point{X: finite(px), Y: finite(py)}
	v.hovering = true
}

// Leave clears the hover state.
func (v *View) Leave() { v.hovering = false }

// Parallax returns the background offset for the current hover position,
// at most MaxParallax pixels long. It points away from the pointer.
func (v *View) Parallax() (dx, dy float64) {
	if !v.hovering || v.Width <= 0 || v.Height <= 0 {
		return 0, 0
	}
	c := v.center()
	dx = -(v.hover.X - c.X) / c.X * MaxParallax
	dy = -(v.hover.Y - c.Y) / c.Y * MaxParallax
	if n := math.Hypot(dx, dy); n > MaxParallax {
		dx, dy = dx/n*MaxParallax, dy/n*MaxParallax
	}
	return dx, dy
}

// ToScreen maps a world point to screen space.
func (v *View) ToScreen(p nodegraph.Point) nodegraph.Point {
	c := v.center()
	return nodegraph.Point{
		X: (p.X-c.X)*v.Zoom + c.X + v.PanX,
		Y: (p.Y-c.Y)*v.Zoom + c.Y + v.PanY,
	}
}

// ToWorld maps a screen point to world space.
func (v *View) ToWorld(p nodegraph.Point) nodegraph.Point {
	c := v.center()
	return nodegraph.Point{
		X: (p.X-c.X-v.PanX)/v.Zoom + c.X,
		Y: (p.Y-c.Y-v.PanY)/v.Zoom + c.Y,
	}
}

// Translate returns the SVG-style affine form of the transform:
// screen = world*zoom + (tx, ty).
func (v *View) Translate() (tx, ty float64) {
	c := v.center()
	return c.X*(1-v.Zoom) + v.PanX, c.Y*(1-v.Zoom) + v.PanY
}

// NodeAt returns the node under the screen point, if any lies within
// HitRadius. The closest node wins.
func (v *View) NodeAt(l nodegraph.Layout, px, py float64) (nodegraph.Node, bool) {
	p := nodegraph.Point{X: px, Y: py}
	var best nodegraph.Node
	bestDist := math.Inf(1)
	for _, n := range l.Nodes() {
		if d := v.ToScreen(n.Pos).Dist(p); d <= HitRadius && d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

func (v *View) clamp() {
	v.Zoom = clampZoom(v.Zoom)
	v.PanX = clampAbs(v.PanX, PanLimit*v.Width)
	v.PanY = clampAbs(v.PanY, PanLimit*v.Height)
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

func clampAbs(v, limit float64) float64 {
	limit = math.Max(limit, 0)
	return math.Max(-limit, math.Min(limit, v))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
