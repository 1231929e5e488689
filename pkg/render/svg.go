package render

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"time"

	"github.com/matzehuels/retrocausal/pkg/engine"
	"github.com/matzehuels/retrocausal/pkg/nodegraph"
	"github.com/matzehuels/retrocausal/pkg/photon"
	"github.com/matzehuels/retrocausal/pkg/view"
)

// enginePulsePeriod is the breathing period of the ENGINE node.
const enginePulsePeriod = 2400 * time.Millisecond

// Option configures SVG rendering.
type Option func(*renderer)

type renderer struct {
	theme   Theme
	grain   bool
	labels  bool
	pattern bool
	hover   nodegraph.Name
}

func WithGrain(on bool) Option   { return func(r *renderer) { r.grain = on } }
func WithLabels() Option         { return func(r *renderer) { r.labels = true } }
func WithPattern(on bool) Option { return func(r *renderer) { r.pattern = on } }
func WithTheme(t Theme) Option   { return func(r *renderer) { r.theme = t } }

// WithHover highlights the named node and labels it.
func WithHover(name nodegraph.Name) Option { return func(r *renderer) { r.hover = name } }

func newRenderer(opts ...Option) renderer {
	r := renderer{theme: themes[DefaultTheme], grain: true, pattern: true}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// SVG draws f as seen through v. A nil view means the identity transform.
// A frame without a drawable canvas yields an empty document.
//
// Draw order: background and grain, then inside the pan/zoom group the
// rails, nodes, interference pattern, trails and photons, and arcs.
func SVG(f *engine.Frame, v *view.View, opts ...Option) []byte {
	r := newRenderer(opts...)

	var buf bytes.Buffer
	if !f.Valid() {
		buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 0 0" width="0" height="0"></svg>` + "\n")
		return buf.Bytes()
	}
	w, h := f.Layout.Width, f.Layout.Height
	if v == nil {
		v = view.New(w, h)
	}

	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n", w, h, w, h)
	r.renderDefs(&buf)
	fmt.Fprintf(&buf, `  <rect width="%.1f" height="%.1f" fill="%s"/>`+"\n", w, h, r.theme.Background)
	if r.grain {
		dx, dy := v.Parallax()
		fmt.Fprintf(&buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" filter="url(#grain)" opacity="0.08"/>`+"\n",
			dx-view.MaxParallax, dy-view.MaxParallax, w+2*view.MaxParallax, h+2*view.MaxParallax)
	}

	tx, ty := v.Translate()
	fmt.Fprintf(&buf, `  <g id="scene" transform="translate(%.2f %.2f) scale(%.4f)">`+"\n", tx, ty, v.Zoom)
	r.renderRails(&buf, f.Layout)
	r.renderNodes(&buf, f)
	if r.pattern {
		r.renderPattern(&buf, f)
	}
	r.renderPhotons(&buf, f)
	r.renderArcs(&buf, f)
	if r.labels || r.hover != "" {
		r.renderLabels(&buf, f.Layout)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *renderer) renderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	buf.WriteString(`    <filter id="grain" x="0" y="0" width="100%" height="100%">` + "\n")
	buf.WriteString(`      <feTurbulence type="fractalNoise" baseFrequency="0.9" numOctaves="2" stitchTiles="stitch"/>` + "\n")
	buf.WriteString(`      <feColorMatrix type="saturate" values="0"/>` + "\n")
	buf.WriteString("    </filter>\n")
	buf.WriteString(`    <filter id="glow" x="-50%" y="-50%" width="200%" height="200%">` + "\n")
	buf.WriteString(`      <feGaussianBlur stdDeviation="2.5" result="blur"/>` + "\n")
	buf.WriteString(`      <feMerge><feMergeNode in="blur"/><feMergeNode in="SourceGraphic"/></feMerge>` + "\n")
	buf.WriteString("    </filter>\n")
	buf.WriteString("  </defs>\n")
}

func (r *renderer) renderRails(buf *bytes.Buffer, l nodegraph.Layout) {
	buf.WriteString(`    <g class="rails">` + "\n")
	for _, rail := range nodegraph.Rails() {
		a, b := l.Pos(rail.From), l.Pos(rail.To)
		dash := ""
		if rail.To == nodegraph.Engine {
			dash = ` stroke-dasharray="4 6"`
		}
		fmt.Fprintf(buf, `      <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1.5"%s/>`+"\n",
			a.X, a.Y, b.X, b.Y, r.theme.Rail, dash)
	}
	buf.WriteString("    </g>\n")
}

func (r *renderer) renderNodes(buf *bytes.Buffer, f *engine.Frame) {
	buf.WriteString(`    <g class="nodes">` + "\n")
	for _, n := range f.Layout.Nodes() {
		stroke := r.theme.NodeStroke
		if n.Name == r.hover {
			stroke = r.theme.Label
		}
		switch n.Category {
		case nodegraph.CategoryLaser:
			r.laser(buf, n.Pos, stroke)
		case nodegraph.CategoryEntangler:
			r.entangler(buf, n.Pos, stroke)
		case nodegraph.CategorySplitter:
			r.splitter(buf, n.Pos, stroke)
		case nodegraph.CategoryDetector:
			r.detector(buf, n, stroke, f.HitsAt(n.Name))
		case nodegraph.CategoryEngine:
			r.engineNode(buf, n.Pos, f.Time)
		}
	}
	buf.WriteString("    </g>\n")
}

func (r *renderer) laser(buf *bytes.Buffer, p nodegraph.Point, stroke string) {
	fmt.Fprintf(buf, `      <rect x="%.1f" y="%.1f" width="28" height="14" rx="3" fill="%s" stroke="%s" stroke-width="1.5"/>`+"\n",
		p.X-14, p.Y-7, r.theme.Node, stroke)
	fmt.Fprintf(buf, `      <circle cx="%.1f" cy="%.1f" r="2.5" fill="%s"/>`+"\n", p.X+14, p.Y, r.theme.Signal)
}

func (r *renderer) entangler(buf *bytes.Buffer, p nodegraph.Point, stroke string) {
	fmt.Fprintf(buf, `      <polygon points="%s" fill="%s" stroke="%s" stroke-width="1.5"/>`+"\n",
		polygon(p, 12, 4, math.Pi/4), r.theme.Node, stroke)
}

func (r *renderer) splitter(buf *bytes.Buffer, p nodegraph.Point, stroke string) {
	fmt.Fprintf(buf, `      <rect x="%.1f" y="%.1f" width="14" height="14" fill="%s" stroke="%s" stroke-width="1.5"/>`+"\n",
		p.X-7, p.Y-7, r.theme.Node, stroke)
	fmt.Fprintf(buf, `      <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>`+"\n",
		p.X-7, p.Y+7, p.X+7, p.Y-7, stroke)
}

func (r *renderer) detector(buf *bytes.Buffer, n nodegraph.Node, stroke string, pulse float64) {
	if pulse > 0 {
		color := r.theme.Erased
		switch n.Name {
		case nodegraph.D0:
			color = r.theme.Signal
		case nodegraph.D2:
			color = r.theme.WhichPath
		}
		fmt.Fprintf(buf, `      <circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s" opacity="%.2f" filter="url(#glow)"/>`+"\n",
			n.Pos.X, n.Pos.Y, 10+10*pulse, color, 0.6*pulse)
	}
	fmt.Fprintf(buf, `      <circle cx="%.1f" cy="%.1f" r="9" fill="%s" stroke="%s" stroke-width="1.5"/>`+"\n",
		n.Pos.X, n.Pos.Y, r.theme.Node, stroke)
	fmt.Fprintf(buf, `      <circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`+"\n", n.Pos.X, n.Pos.Y, stroke)
}

func (r *renderer) engineNode(buf *bytes.Buffer, p nodegraph.Point, now time.Time) {
	s := breath(now)
	fmt.Fprintf(buf, `      <circle cx="%.1f" cy="%.1f" r="%.2f" fill="none" stroke="%s" stroke-width="1" opacity="%.2f"/>`+"\n",
		p.X, p.Y, 16+6*s, r.theme.Engine, 0.25+0.35*s)
	fmt.Fprintf(buf, `      <polygon points="%s" fill="%s" stroke="%s" stroke-width="1.5" filter="url(#glow)"/>`+"\n",
		polygon(p, 11+2*s, 6, 0), r.theme.Node, r.theme.Engine)
}

// breath returns the ENGINE pulse phase in [0, 1] at now.
func breath(now time.Time) float64 {
	if now.IsZero() {
		return 0
	}
	t := float64(now.UnixNano()%int64(enginePulsePeriod)) / float64(enginePulsePeriod)
	return 0.5 - 0.5*math.Cos(2*math.Pi*t)
}

// renderPattern draws the interference histogram as bars above D0.
func (r *renderer) renderPattern(buf *bytes.Buffer, f *engine.Frame) {
	if len(f.Pattern) == 0 {
		return
	}
	peak := 0.0
	for _, v := range f.Pattern {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		return
	}

	d0 := f.Layout.Pos(nodegraph.D0)
	width := f.Layout.Width * 0.16
	barW := width / float64(len(f.Pattern))
	maxH := f.Layout.Height * 0.1
	base := d0.Y - 16

	buf.WriteString(`    <g class="pattern">` + "\n")
	for i, v := range f.Pattern {
		bh := v / peak * maxH
		if bh < 0.5 {
			continue
		}
		x := d0.X - width/2 + float64(i)*barW
		fmt.Fprintf(buf, `      <rect x="%.1f" y="%.1f" width="%.2f" height="%.1f" fill="%s" opacity="%.2f"/>`+"\n",
			x, base-bh, math.Max(barW-0.5, 0.5), bh, r.theme.Pattern, 0.35+0.5*v/peak)
	}
	buf.WriteString("    </g>\n")
}

func (r *renderer) renderPhotons(buf *bytes.Buffer, f *engine.Frame) {
	buf.WriteString(`    <g class="photons">` + "\n")
	for _, pair := range f.Pairs {
		for _, p := range []*photon.Photon{pair.Signal, pair.Idler} {
			color := r.photonColor(p, pair.Kind)
			for _, tp := range p.Trail {
				op := tp.Opacity(f.Time)
				if op <= 0 {
					continue
				}
				fmt.Fprintf(buf, `      <circle cx="%.1f" cy="%.1f" r="%.2f" fill="%s" opacity="%.2f"/>`+"\n",
					tp.Pos.X, tp.Pos.Y, p.Size*0.5, color, 0.5*op)
			}
			if p.Terminal() {
				continue
			}
			fmt.Fprintf(buf, `      <circle class="%s" cx="%.1f" cy="%.1f" r="%.2f" fill="%s" filter="url(#glow)"/>`+"\n",
				p.Role, p.Pos.X, p.Pos.Y, p.Size, color)
		}
	}
	buf.WriteString("    </g>\n")
}

func (r *renderer) photonColor(p *photon.Photon, kind photon.IdlerKind) string {
	switch {
	case p.Role == photon.RoleSignal:
		return r.theme.Signal
	case kind == photon.KindWhichPath:
		return r.theme.WhichPath
	default:
		return r.theme.Erased
	}
}

// renderArcs draws each arc as a quadratic curve bowed above the chord,
// revealed up to its progress.
func (r *renderer) renderArcs(buf *bytes.Buffer, f *engine.Frame) {
	if len(f.Arcs) == 0 {
		return
	}
	buf.WriteString(`    <g class="arcs">` + "\n")
	for _, a := range f.Arcs {
		from, to := f.Layout.Pos(a.From), f.Layout.Pos(a.To)
		ctrl := arcControl(from, to)
		color := r.theme.Erased
		if a.Kind == photon.KindWhichPath {
			color = r.theme.WhichPath
		}
		fmt.Fprintf(buf, `      <path d="M%.1f %.1f Q%.1f %.1f %.1f %.1f" fill="none" stroke="%s" stroke-width="1.5" pathLength="1" stroke-dasharray="1" stroke-dashoffset="%.3f" opacity="%.2f"/>`+"\n",
			from.X, from.Y, ctrl.X, ctrl.Y, to.X, to.Y, color, 1-a.Progress, a.Opacity)
	}
	buf.WriteString("    </g>\n")
}

// arcControl returns the control point of an arc's quadratic curve.
func arcControl(from, to nodegraph.Point) nodegraph.Point {
	mid := from.Lerp(to, 0.5)
	return nodegraph.Point{X: mid.X, Y: mid.Y - 0.35*from.Dist(to)}
}

func (r *renderer) renderLabels(buf *bytes.Buffer, l nodegraph.Layout) {
	buf.WriteString(`    <g class="labels" font-family="monospace" font-size="11">` + "\n")
	for _, n := range l.Nodes() {
		if !r.labels && n.Name != r.hover {
			continue
		}
		fmt.Fprintf(buf, `      <text x="%.1f" y="%.1f" fill="%s" text-anchor="middle">%s</text>`+"\n",
			n.Pos.X, n.Pos.Y+26, r.theme.Label, html.EscapeString(string(n.Name)))
	}
	buf.WriteString("    </g>\n")
}

// polygon returns the points attribute of a regular polygon.
func polygon(c nodegraph.Point, radius float64, sides int, rot float64) string {
	var b bytes.Buffer
	for i := range sides {
		a := rot + 2*math.Pi*float64(i)/float64(sides)
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", c.X+radius*math.Cos(a), c.Y+radius*math.Sin(a))
	}
	return b.String()
}
