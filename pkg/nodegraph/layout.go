package nodegraph

import "math"

// Name identifies a node in the diagram.
type Name string

// Node names.
const (
	Laser  Name = "LASER"
	BBO    Name = "BBO"
	BSA    Name = "BSA"
	BSB    Name = "BSB"
	D0     Name = "D0"
	D1     Name = "D1"
	D2     Name = "D2"
	Engine Name = "ENGINE"
)

// Primary is the detector that terminates every signal path.
const Primary = D0

// Category classifies a node for glyph selection.
type Category int

const (
	CategoryLaser Category = iota
	CategoryEntangler
	CategorySplitter
	CategoryDetector
	CategoryEngine
)

func (c Category) String() string {
	switch c {
	case CategoryLaser:
		return "laser"
	case CategoryEntangler:
		return "entangler"
	case CategorySplitter:
		return "splitter"
	case CategoryDetector:
		return "detector"
	case CategoryEngine:
		return "engine"
	default:
		return "unknown"
	}
}

// Point is a 2D position in canvas units.
type Point struct {
	X, Y float64
}

// Lerp returns the point at fraction t between p and q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Node is a positioned diagram node.
type Node struct {
	Name     Name
	Category Category
	Pos      Point
}

// nodeDef is the static description of a node: its category and its position
// as a fraction of the canvas.
type nodeDef struct {
	name     Name
	category Category
	fx, fy   float64
}

// nodeDefs is ordered; Nodes() returns nodes in this order.
var nodeDefs = []nodeDef{
	{Laser, CategoryLaser, 0.08, 0.50},
	{BBO, CategoryEntangler, 0.25, 0.50},
	{D0, CategoryDetector, 0.50, 0.20},
	{BSA, CategorySplitter, 0.45, 0.70},
	{D2, CategoryDetector, 0.66, 0.58},
	{BSB, CategorySplitter, 0.66, 0.82},
	{D1, CategoryDetector, 0.86, 0.82},
	{Engine, CategoryEngine, 0.86, 0.32},
}

// Fixed photon paths.
var (
	SignalPath = []Name{Laser, BBO, D0}
	WhichPath  = []Name{Laser, BBO, BSA, D2}
	ErasedPath = []Name{Laser, BBO, BSA, BSB, D1}
)

// Rail is a static segment drawn between two nodes.
type Rail struct {
	From, To Name
}

var rails = []Rail{
	{Laser, BBO},
	{BBO, D0},
	{BBO, BSA},
	{BSA, D2},
	{BSA, BSB},
	{BSB, D1},
	{D0, Engine},
	{D1, Engine},
	{D2, Engine},
}

// Rails returns the static rail segments of the diagram.
func Rails() []Rail {
	out := make([]Rail, len(rails))
	copy(out, rails)
	return out
}

// Names returns all node names in layout order.
func Names() []Name {
	out := make([]Name, len(nodeDefs))
	for i, s := range nodeDefs {
		out[i] = s.name
	}
	return out
}

// Layout is the node diagram computed for one canvas size.
type Layout struct {
	Width, Height float64
	nodes         map[Name]Node
}

// Compute lays the diagram out on a w×h canvas.
// Degenerate sizes produce a layout whose Valid method reports false and
// whose positions are all at the origin.
func Compute(w, h float64) Layout {
	l := Layout{Width: w, Height: h, nodes: make(map[Name]Node, len(nodeDefs))}
	valid := l.Valid()
	for _, s := range nodeDefs {
		n := Node{Name: s.name, Category: s.category}
		if valid {
			n.Pos = Point{X: s.fx * w, Y: s.fy * h}
		}
		l.nodes[s.name] = n
	}
	return l
}

// Valid reports whether the layout was computed for a drawable canvas.
func (l Layout) Valid() bool {
	return l.Width > 0 && l.Height > 0 && !math.IsNaN(l.Width) && !math.IsNaN(l.Height) &&
		!math.IsInf(l.Width, 0) && !math.IsInf(l.Height, 0)
}

// Node returns the named node.
func (l Layout) Node(name Name) (Node, bool) {
	n, ok := l.nodes[name]
	return n, ok
}

// Pos returns the position of the named node, or the origin if unknown.
func (l Layout) Pos(name Name) Point {
	return l.nodes[name].Pos
}

// Nodes returns all nodes in layout order.
func (l Layout) Nodes() []Node {
	out := make([]Node, 0, len(nodeDefs))
	for _, s := range nodeDefs {
		out = append(out, l.nodes[s.name])
	}
	return out
}

// Contains reports whether p lies inside the canvas.
func (l Layout) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= l.Width && p.Y <= l.Height
}
