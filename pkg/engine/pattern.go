package engine

import (
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/matzehuels/retrocausal/pkg/photon"
)

// fringes is the number of bright bands across the detector screen for
// erased-path arrivals.
const fringes = 4

// Pattern is the histogram of signal arrivals across the D0 screen.
// Bins span screen positions [-1, 1]. Erased pairs land on a cos² fringe
// pattern under a Gaussian envelope; which-path pairs land on the envelope
// alone, so the fringes wash out as which-path arrivals dominate.
type Pattern struct {
	bins     []float64
	halfLife time.Duration
}

func newPattern(n int, halfLife time.Duration) *Pattern {
	return &Pattern{bins: make([]float64, max(n, 1)), halfLife: halfLife}
}

// Record adds one arrival of the given weight.
func (p *Pattern) Record(kind photon.IdlerKind, weight float64, rng *rand.Rand) {
	x := samplePosition(kind, rng)
	i := int((x + 1) / 2 * float64(len(p.bins)))
	i = min(max(i, 0), len(p.bins)-1)
	p.bins[i] += weight
}

// Decay fades all bins by dt against the half-life.
func (p *Pattern) Decay(dt time.Duration) {
	if p.halfLife <= 0 || dt <= 0 {
		return
	}
	f := math.Exp2(-float64(dt) / float64(p.halfLife))
	for i := range p.bins {
		p.bins[i] *= f
	}
}

// Bins returns a copy of the histogram.
func (p *Pattern) Bins() []float64 { return slices.Clone(p.bins) }

// Clear zeroes the histogram.
func (p *Pattern) Clear() { clear(p.bins) }

// Total returns the sum of all bins.
func (p *Pattern) Total() float64 {
	var s float64
	for _, v := range p.bins {
		s += v
	}
	return s
}

// samplePosition draws a screen position in [-1, 1] by rejection sampling.
func samplePosition(kind photon.IdlerKind, rng *rand.Rand) float64 {
	for range 64 {
		x := rng.Float64()*2 - 1
		density := envelope(x)
		if kind == photon.KindErased {
			c := math.Cos(math.Pi * fringes * x / 2)
			density *= c * c
		}
		if rng.Float64() < density {
			return x
		}
	}
	return rng.NormFloat64() * 0.1
}

func envelope(x float64) float64 {
	return math.Exp(-x * x / (2 * 0.45 * 0.45))
}
