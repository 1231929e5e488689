package photon

import (
	"time"

	"github.com/matzehuels/retrocausal/pkg/event"
)

// IdlerKind is the route the idler photon takes.
type IdlerKind int

const (
	KindWhichPath IdlerKind = iota
	KindErased
)

func (k IdlerKind) String() string {
	if k == KindErased {
		return "erased"
	}
	return "which-path"
}

// Pair is the signal and idler photons produced by one source event.
type Pair struct {
	ID      string
	Signal  *Photon
	Idler   *Photon
	Kind    IdlerKind
	Source  event.Event
	Created time.Time
}

// Done reports whether both photons have reached their terminal nodes.
func (p *Pair) Done() bool {
	return p.Signal.Terminal() && p.Idler.Terminal()
}

// Expired reports whether the pair has outlived maxAge. A non-positive
// maxAge disables expiry.
func (p *Pair) Expired(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(p.Created) >= maxAge
}

// Clone returns a deep copy of the pair.
func (p *Pair) Clone() *Pair {
	c := *p
	c.Signal = p.Signal.Clone()
	c.Idler = p.Idler.Clone()
	return &c
}
