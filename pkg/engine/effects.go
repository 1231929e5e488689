package engine

import (
	"time"

	"github.com/matzehuels/retrocausal/pkg/nodegraph"
	"github.com/matzehuels/retrocausal/pkg/photon"
)

// Hit is a transient detector pulse emitted when a photon lands.
type Hit struct {
	Detector  nodegraph.Name
	At        time.Time
	Intensity float64 // [0, 1], from photon size
	Kind      photon.IdlerKind
	Role      photon.Role
}

// Opacity returns the pulse strength at now for a hit that lives ttl.
func (h Hit) Opacity(now time.Time, ttl time.Duration) float64 {
	if ttl <= 0 {
		return 0
	}
	age := now.Sub(h.At)
	if age <= 0 {
		return 1
	}
	return max(0, 1-float64(age)/float64(ttl))
}

// Arc is a decorative curve drawn from an idler detector back to D0.
type Arc struct {
	From     nodegraph.Name
	To       nodegraph.Name
	Kind     photon.IdlerKind
	Progress float64 // [0, 1], how much of the curve is drawn
	Opacity  float64 // [0, 1]
}

// step advances the arc by dt and reports whether it is still alive.
func (a *Arc) step(dt, duration, fade time.Duration) bool {
	if duration > 0 {
		a.Progress += float64(dt) / float64(duration)
	} else {
		a.Progress = 1
	}
	if fade > 0 {
		a.Opacity -= float64(dt) / float64(fade)
	} else {
		a.Opacity = 0
	}
	a.Progress = min(a.Progress, 1)
	a.Opacity = max(a.Opacity, 0)
	return a.Progress < 1 && a.Opacity > 0
}
