// Package ascii rasterizes engine frames onto a terminal character grid.
//
// The grid maps the frame's canvas through the same pan/zoom view as the
// SVG renderer, so terminal and image output agree on what is visible.
// Colors come from lipgloss and degrade to plain text on terminals without
// color support.
package ascii

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/retrocausal/pkg/engine"
	"github.com/matzehuels/retrocausal/pkg/nodegraph"
	"github.com/matzehuels/retrocausal/pkg/photon"
	"github.com/matzehuels/retrocausal/pkg/view"
)

type kind uint8

const (
	kindBlank kind = iota
	kindRail
	kindArc
	kindTrail
	kindPattern
	kindLabel
	kindSignal
	kindWhichPath
	kindErased
	kindNode
	kindHit
)

var styles = map[kind]lipgloss.Style{
	kindRail:      lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	kindArc:       lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	kindTrail:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	kindPattern:   lipgloss.NewStyle().Foreground(lipgloss.Color("87")),
	kindNode:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true),
	kindHit:       lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true),
	kindLabel:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	kindSignal:    lipgloss.NewStyle().Foreground(lipgloss.Color("87")),
	kindWhichPath: lipgloss.NewStyle().Foreground(lipgloss.Color("215")),
	kindErased:    lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
}

var glyphs = map[nodegraph.Category]rune{
	nodegraph.CategoryLaser:     '▶',
	nodegraph.CategoryEntangler: '◆',
	nodegraph.CategorySplitter:  '◩',
	nodegraph.CategoryDetector:  '◉',
	nodegraph.CategoryEngine:    '✺',
}

var bars = []rune(" ▁▂▃▄▅▆▇█")

type cell struct {
	r rune
	k kind
}

// Option configures rendering.
type Option func(*canvas)

// WithPlain disables colors.
func WithPlain() Option { return func(c *canvas) { c.plain = true } }

// WithLabels prints node names next to their glyphs.
func WithLabels() Option { return func(c *canvas) { c.labels = true } }

type canvas struct {
	cols, rows int
	cells      []cell
	frame      *engine.Frame
	view       *view.View
	plain      bool
	labels     bool
}

// Render draws f through v onto a cols×rows grid and returns it as lines
// joined by newlines. A nil view means the identity transform.
func Render(f *engine.Frame, v *view.View, cols, rows int, opts ...Option) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	c := &canvas{cols: cols, rows: rows, cells: make([]cell, cols*rows), frame: f, view: v}
	for _, opt := range opts {
		opt(c)
	}
	if !f.Valid() {
		return c.String()
	}
	if c.view == nil {
		c.view = view.New(f.Layout.Width, f.Layout.Height)
	}

	c.rails()
	c.arcs()
	c.pattern()
	c.photons()
	c.nodes()
	return c.String()
}

// cellOf maps a world point to a grid cell.
func (c *canvas) cellOf(p nodegraph.Point) (x, y int, ok bool) {
	s := c.view.ToScreen(p)
	l := c.frame.Layout
	x = int(math.Floor(s.X / l.Width * float64(c.cols)))
	y = int(math.Floor(s.Y / l.Height * float64(c.rows)))
	return x, y, x >= 0 && y >= 0 && x < c.cols && y < c.rows
}

func (c *canvas) set(x, y int, r rune, k kind) {
	if x < 0 || y < 0 || x >= c.cols || y >= c.rows {
		return
	}
	i := y*c.cols + x
	if c.cells[i].k > k {
		return
	}
	c.cells[i] = cell{r: r, k: k}
}

func (c *canvas) plot(p nodegraph.Point, r rune, k kind) {
	if x, y, ok := c.cellOf(p); ok {
		c.set(x, y, r, k)
	}
}

func (c *canvas) rails() {
	l := c.frame.Layout
	for _, rail := range nodegraph.Rails() {
		c.line(l.Pos(rail.From), l.Pos(rail.To), '·', kindRail)
	}
}

// line samples the segment once per cell it crosses.
func (c *canvas) line(a, b nodegraph.Point, r rune, k kind) {
	ax, ay, _ := c.cellOf(a)
	bx, by, _ := c.cellOf(b)
	steps := max(abs(bx-ax), abs(by-ay), 1)
	for i := 0; i <= steps; i++ {
		c.plot(a.Lerp(b, float64(i)/float64(steps)), r, k)
	}
}

func (c *canvas) arcs() {
	l := c.frame.Layout
	for _, a := range c.frame.Arcs {
		from, to := l.Pos(a.From), l.Pos(a.To)
		mid := from.Lerp(to, 0.5)
		ctrl := nodegraph.Point{X: mid.X, Y: mid.Y - 0.35*from.Dist(to)}
		const n = 48
		for i := 0; i <= int(a.Progress*n); i++ {
			c.plot(quad(from, ctrl, to, float64(i)/n), '~', kindArc)
		}
	}
}

func quad(a, ctrl, b nodegraph.Point, t float64) nodegraph.Point {
	return a.Lerp(ctrl, t).Lerp(ctrl.Lerp(b, t), t)
}

// pattern draws the interference histogram on the row above D0.
func (c *canvas) pattern() {
	bins := c.frame.Pattern
	peak := 0.0
	for _, v := range bins {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		return
	}
	x0, y, ok := c.cellOf(c.frame.Layout.Pos(nodegraph.D0))
	if !ok {
		return
	}
	y -= 2
	width := min(len(bins), max(c.cols/5, 8))
	for i := range width {
		lo, hi := i*len(bins)/width, (i+1)*len(bins)/width
		v := 0.0
		for _, b := range bins[lo:max(hi, lo+1)] {
			v = math.Max(v, b)
		}
		level := int(math.Round(v / peak * float64(len(bars)-1)))
		if level > 0 {
			c.set(x0-width/2+i, y, bars[level], kindPattern)
		}
	}
}

func (c *canvas) photons() {
	f := c.frame
	for _, pair := range f.Pairs {
		for _, p := range []*photon.Photon{pair.Signal, pair.Idler} {
			for _, tp := range p.Trail {
				if tp.Opacity(f.Time) > 0.2 {
					c.plot(tp.Pos, '.', kindTrail)
				}
			}
			if p.Terminal() {
				continue
			}
			k := kindSignal
			if p.Role == photon.RoleIdler {
				k = kindErased
				if pair.Kind == photon.KindWhichPath {
					k = kindWhichPath
				}
			}
			r := '•'
			if p.Size >= 5 {
				r = '●'
			}
			c.plot(p.Pos, r, k)
		}
	}
}

func (c *canvas) nodes() {
	f := c.frame
	for _, n := range f.Layout.Nodes() {
		x, y, ok := c.cellOf(n.Pos)
		if !ok {
			continue
		}
		k := kindNode
		if n.Category == nodegraph.CategoryDetector && f.HitsAt(n.Name) > 0.3 {
			k = kindHit
		}
		c.set(x, y, glyphs[n.Category], k)
		if c.labels {
			for i, r := range string(n.Name) {
				c.set(x+2+i, y, r, kindLabel)
			}
		}
	}
}

// String joins the grid into lines, grouping runs of equal style.
func (c *canvas) String() string {
	var b strings.Builder
	for y := range c.rows {
		if y > 0 {
			b.WriteByte('\n')
		}
		row := c.cells[y*c.cols : (y+1)*c.cols]
		for x := 0; x < len(row); {
			end := x
			var run strings.Builder
			for end < len(row) && row[end].k == row[x].k {
				r := row[end].r
				if r == 0 {
					r = ' '
				}
				run.WriteRune(r)
				end++
			}
			if st, ok := styles[row[x].k]; ok && !c.plain {
				b.WriteString(st.Render(run.String()))
			} else {
				b.WriteString(run.String())
			}
			x = end
		}
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
