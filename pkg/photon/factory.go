package photon

import (
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/nodegraph"
)

// Rand is the source of uniform draws in [0, 1) used for path selection.
type Rand interface {
	Float64() float64
}

// Params bounds the visual parameters derived from an event.
type Params struct {
	MinSize       float64
	MaxSize       float64
	SizePerDecade float64 // size gained per decade of magnitude

	MinSpeed      float64
	MaxSpeed      float64
	SpeedHalfLife time.Duration // event age at which speed halves

	MinSlippage     float64
	MaxSlippage     float64
	ImpactSlippage  float64 // slippage per unit of price impact
	SlippageDecades float64 // magnitude decades that reach MaxSlippage
	MinTrail        int
	MaxTrail        int

	// Which-path weighting. The base probability is shifted by side,
	// magnitude and recency, then clamped to [WhichMin, WhichMax].
	WhichBase       float64
	SideBias        float64
	MagnitudeBias   float64
	MagnitudeScale  float64 // decades at which MagnitudeBias is fully applied
	RecencyBias     float64
	WhichMin        float64
	WhichMax        float64
	IdlerSizeFactor float64
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	return Params{
		MinSize:       2,
		MaxSize:       8,
		SizePerDecade: 0.75,

		MinSpeed:      0.4,
		MaxSpeed:      2.0,
		SpeedHalfLife: time.Minute,

		MinSlippage:     0.05,
		MaxSlippage:     1,
		ImpactSlippage:  10,
		SlippageDecades: 8,
		MinTrail:        4,
		MaxTrail:        24,

		WhichBase:       0.5,
		SideBias:        0.2,
		MagnitudeBias:   0.15,
		MagnitudeScale:  8,
		RecencyBias:     0.1,
		WhichMin:        0.1,
		WhichMax:        0.9,
		IdlerSizeFactor: 0.85,
	}
}

// Option configures a Factory.
type Option func(*Factory)

// WithParams overrides the derivation bounds.
func WithParams(p Params) Option { return func(f *Factory) { f.params = p } }

// WithRand sets the random source used for path selection.
func WithRand(r Rand) Option { return func(f *Factory) { f.rng = r } }

// WithSeed seeds the default random source for reproducible runs.
func WithSeed(seed uint64) Option {
	return func(f *Factory) { f.rng = rand.New(rand.NewPCG(seed, seed^0xdeadbeef)) }
}

// WithIDs overrides pair ID generation.
func WithIDs(fn func() string) Option { return func(f *Factory) { f.newID = fn } }

// Factory turns source events into photon pairs.
type Factory struct {
	params Params
	rng    Rand
	newID  func() string
}

// NewFactory creates a factory with default parameters and a seed of 42.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{params: DefaultParams(), newID: uuid.NewString}
	WithSeed(42)(f)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Params returns the factory's derivation bounds.
func (f *Factory) Params() Params { return f.params }

// NewPair builds exactly one pair for ev, placed at the start of its paths
// on layout l.
func (f *Factory) NewPair(ev event.Event, l nodegraph.Layout, now time.Time) *Pair {
	id := f.newID()
	kind := KindErased
	if f.rng.Float64() < f.WhichPathProbability(ev, now) {
		kind = KindWhichPath
	}

	size := f.Size(ev)
	speed := f.Speed(ev, now)
	slip := f.Slippage(ev)
	trail := f.TrailLen(slip)

	signal := &Photon{
		ID:       id + "/signal",
		Role:     RoleSignal,
		Path:     slices.Clone(nodegraph.SignalPath),
		Size:     size,
		Speed:    speed,
		Slippage: slip,
		TrailLen: trail,
	}
	idlerPath := nodegraph.ErasedPath
	if kind == KindWhichPath {
		idlerPath = nodegraph.WhichPath
	}
	idler := &Photon{
		ID:       id + "/idler",
		Role:     RoleIdler,
		Path:     slices.Clone(idlerPath),
		Size:     math.Max(f.params.MinSize, size*f.params.IdlerSizeFactor),
		Speed:    speed,
		Slippage: slip,
		TrailLen: trail,
	}
	signal.Place(l)
	idler.Place(l)

	return &Pair{
		ID:      id,
		Signal:  signal,
		Idler:   idler,
		Kind:    kind,
		Source:  ev,
		Created: now,
	}
}

// Size maps magnitude to a photon radius on a log scale.
func (f *Factory) Size(ev event.Event) float64 {
	p := f.params
	return clamp(p.MinSize+decades(ev.Magnitude())*p.SizePerDecade, p.MinSize, p.MaxSize)
}

// Speed decays from MaxSpeed toward MinSpeed as the event ages.
// Events without a timestamp move at MinSpeed.
func (f *Factory) Speed(ev event.Event, now time.Time) float64 {
	p := f.params
	age, ok := ev.Age(now)
	if !ok || p.SpeedHalfLife <= 0 {
		return p.MinSpeed
	}
	decay := math.Exp2(-float64(age) / float64(p.SpeedHalfLife))
	return clamp(p.MaxSpeed*decay, p.MinSpeed, p.MaxSpeed)
}

// Slippage derives the trail-length driver from price impact when known,
// otherwise from magnitude.
func (f *Factory) Slippage(ev event.Event) float64 {
	p := f.params
	if impact, ok := ev.PriceImpact(); ok {
		return clamp(impact*p.ImpactSlippage, p.MinSlippage, p.MaxSlippage)
	}
	if p.SlippageDecades <= 0 {
		return p.MinSlippage
	}
	return clamp(decades(ev.Magnitude())/p.SlippageDecades*p.MaxSlippage, p.MinSlippage, p.MaxSlippage)
}

// TrailLen maps slippage to a trail length in points.
func (f *Factory) TrailLen(slippage float64) int {
	p := f.params
	span := p.MaxSlippage - p.MinSlippage
	if span <= 0 {
		return p.MinTrail
	}
	t := clamp((slippage-p.MinSlippage)/span, 0, 1)
	return p.MinTrail + int(math.Round(t*float64(p.MaxTrail-p.MinTrail)))
}

// WhichPathProbability returns the chance that ev's idler takes the
// which-path route. Sells and large events lean toward which-path; buys
// and very fresh events lean toward erasure.
func (f *Factory) WhichPathProbability(ev event.Event, now time.Time) float64 {
	p := f.params
	w := p.WhichBase

	switch ev.Side() {
	case event.SideSell:
		w += p.SideBias
	case event.SideBuy:
		w -= p.SideBias
	}

	if p.MagnitudeScale > 0 {
		w += p.MagnitudeBias * math.Min(decades(ev.Magnitude())/p.MagnitudeScale, 1)
	}

	if age, ok := ev.Age(now); ok && p.SpeedHalfLife > 0 {
		w -= p.RecencyBias * math.Exp2(-float64(age)/float64(p.SpeedHalfLife))
	}

	return clamp(w, p.WhichMin, p.WhichMax)
}

// decades returns log10(1+m), treating non-positive and non-finite
// magnitudes as zero.
func decades(m float64) float64 {
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return 0
	}
	return math.Log10(1 + m)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
