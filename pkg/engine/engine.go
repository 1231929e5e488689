// Package engine runs the photon-pair animation.
//
// An [Engine] owns all live state: photon pairs, detector hits, arcs, the
// interference histogram at D0 and a staged inbox of source events. There is
// exactly one writer: [Engine.Tick] advances everything by one frame, and
// [Engine.Resize], [Engine.Select] and [Engine.Reset] must be called from the
// same goroutine. [Engine.Feed] is the one method safe to call from any
// goroutine; it only stages events for the next tick.
//
// Renderers never see live state. [Engine.Snapshot] returns a deep-copied
// [Frame].
//
// [Loop] drives an engine from a ticker on its own goroutine and serializes
// external mutations as commands between ticks.
package engine

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/nodegraph"
	"github.com/matzehuels/retrocausal/pkg/observability"
	"github.com/matzehuels/retrocausal/pkg/photon"
)

// Stats counts what the engine has done since the last selection change.
type Stats struct {
	Frames  uint64
	Live    int
	Hits    int
	Arcs    int
	Staged  int
	Spawned uint64
	Retired uint64 // both photons terminal
	Expired uint64 // older than MaxPairAge
	Evicted uint64 // over capacity

	WhichPath uint64
	Erased    uint64

	Dropped    uint64 // inbox overflow
	Duplicates uint64
	Rejected   uint64 // invalid or for another token
}

// Engine is the animation state machine.
type Engine struct {
	cfg     Config
	factory *photon.Factory
	logger  *log.Logger
	hooks   observability.EngineHooks
	rng     *rand.Rand

	// Guarded by mu: everything Feed touches.
	mu         sync.Mutex
	token      event.Token
	inbox      []event.Event
	seen       map[string]struct{}
	seenOrder  []string
	dropped    uint64
	duplicates uint64
	rejected   uint64

	// Owned by the ticking goroutine.
	width, height float64
	layout        nodegraph.Layout
	placed        nodegraph.Layout // last drawable layout photons were placed on
	pairs         []*photon.Pair
	hits          []Hit
	arcs          []Arc
	pattern       *Pattern
	lastTick      time.Time
	now           time.Time
	stats         Stats
}

// New creates an engine. Without WithSize the canvas is zero-sized and
// Tick does nothing until Resize is called.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:    DefaultConfig(),
		logger: log.Default(),
		hooks:  observability.Engine(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.factory == nil {
		e.factory = photon.NewFactory()
	}
	e.rng = rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed^0xdeadbeef))
	e.seen = make(map[string]struct{}, e.cfg.DedupeMemory)
	e.pattern = newPattern(e.cfg.PatternBins, e.cfg.PatternDecay)
	e.layout = nodegraph.Compute(e.width, e.height)
	e.placed = e.layout
	return e
}

// Config returns the engine limits.
func (e *Engine) Config() Config { return e.cfg }

// =============================================================================
// Staging (any goroutine)
// =============================================================================

// Feed stages ev for the next tick. It reports false when the event is
// invalid, belongs to a token other than the focused one, or was already
// seen. When the inbox is full the oldest staged event is dropped.
func (e *Engine) Feed(ev event.Event) bool {
	if !ev.Valid() {
		e.mu.Lock()
		e.rejected++
		e.mu.Unlock()
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if addr := ev.TokenAddress(); addr != "" && !e.token.IsZero() && addr != e.token.Address {
		e.rejected++
		return false
	}

	if key := ev.Key(); key != "" {
		if _, dup := e.seen[key]; dup {
			e.duplicates++
			return false
		}
		e.remember(key)
	}

	if len(e.inbox) >= e.cfg.InboxCap {
		n := len(e.inbox) - e.cfg.InboxCap + 1
		e.inbox = slices.Delete(e.inbox, 0, n)
		e.dropped += uint64(n)
	}
	e.inbox = append(e.inbox, ev)
	return true
}

// remember records key, forgetting the oldest key once the memory is full.
// Caller holds mu.
func (e *Engine) remember(key string) {
	if len(e.seenOrder) >= e.cfg.DedupeMemory {
		delete(e.seen, e.seenOrder[0])
		e.seenOrder = slices.Delete(e.seenOrder, 0, 1)
	}
	e.seen[key] = struct{}{}
	e.seenOrder = append(e.seenOrder, key)
}

func (e *Engine) drain() []event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.inbox) == 0 {
		return nil
	}
	out := e.inbox
	e.inbox = make([]event.Event, 0, min(len(out), e.cfg.InboxCap))
	return out
}

// Token returns the focused token.
func (e *Engine) Token() event.Token {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// =============================================================================
// Frame update (single writer)
// =============================================================================

// Tick advances the engine to now. It reports false, and only resets time
// bookkeeping, while the canvas is degenerate.
func (e *Engine) Tick(now time.Time) bool {
	start := time.Now()

	e.layout = nodegraph.Compute(e.width, e.height)
	if !e.layout.Valid() {
		e.lastTick = time.Time{}
		return false
	}

	var dt time.Duration
	if !e.lastTick.IsZero() {
		dt = min(max(now.Sub(e.lastTick), 0), e.cfg.MaxFrameDelta)
	}
	e.lastTick = now
	e.now = now

	e.spawn(now)
	e.trim()
	e.advance(dt, now)
	e.retire(now)
	e.sweep(dt, now)
	e.pattern.Decay(dt)

	e.stats.Frames++
	e.hooks.OnFrame(len(e.pairs), time.Since(start))
	return true
}

func (e *Engine) spawn(now time.Time) {
	for _, ev := range e.drain() {
		p := e.factory.NewPair(ev, e.layout, now)
		e.pairs = append(e.pairs, p)
		e.stats.Spawned++
		if p.Kind == photon.KindWhichPath {
			e.stats.WhichPath++
		} else {
			e.stats.Erased++
		}
		e.hooks.OnPairSpawned(ev.TokenAddress(), p.Kind.String())
	}
}

// trim evicts the oldest pairs beyond capacity. Pairs are kept in spawn
// order, so the oldest are at the front.
func (e *Engine) trim() {
	n := len(e.pairs) - e.cfg.Capacity
	if n <= 0 {
		return
	}
	e.pairs = slices.Delete(e.pairs, 0, n)
	e.stats.Evicted += uint64(n)
	e.hooks.OnPairsRemoved("evicted", n)
	e.logger.Debug("evicted pairs over capacity", "n", n, "capacity", e.cfg.Capacity)
}

func (e *Engine) advance(dt time.Duration, now time.Time) {
	for _, p := range e.pairs {
		if p.Signal.Advance(e.layout, dt, now) {
			e.land(p, p.Signal, now)
		}
		if p.Idler.Advance(e.layout, dt, now) {
			e.land(p, p.Idler, now)
		}
	}
}

// land emits the terminal effects of a photon reaching its last node.
func (e *Engine) land(p *photon.Pair, ph *photon.Photon, now time.Time) {
	det := ph.Last()
	intensity := ph.Size / e.factory.Params().MaxSize
	e.hits = append(e.hits, Hit{
		Detector:  det,
		At:        now,
		Intensity: min(max(intensity, 0), 1),
		Kind:      p.Kind,
		Role:      ph.Role,
	})

	if det == nodegraph.Primary {
		e.pattern.Record(p.Kind, 1, e.rng)
		return
	}
	if ph.Role == photon.RoleIdler {
		e.arcs = append(e.arcs, Arc{From: det, To: nodegraph.Primary, Kind: p.Kind, Opacity: 1})
	}
}

// retire removes pairs whose photons have both landed and pairs that
// outlived MaxPairAge. Spawn order is preserved.
func (e *Engine) retire(now time.Time) {
	var done, expired int
	e.pairs = slices.DeleteFunc(e.pairs, func(p *photon.Pair) bool {
		switch {
		case p.Done():
			done++
			return true
		case p.Expired(now, e.cfg.MaxPairAge):
			expired++
			return true
		}
		return false
	})
	if done > 0 {
		e.stats.Retired += uint64(done)
		e.hooks.OnPairsRemoved("retired", done)
	}
	if expired > 0 {
		e.stats.Expired += uint64(expired)
		e.hooks.OnPairsRemoved("expired", expired)
	}
}

func (e *Engine) sweep(dt time.Duration, now time.Time) {
	e.hits = slices.DeleteFunc(e.hits, func(h Hit) bool {
		return now.Sub(h.At) >= e.cfg.HitTTL
	})
	e.arcs = slices.DeleteFunc(e.arcs, func(a Arc) bool {
		return !a.step(dt, e.cfg.ArcDuration, e.cfg.ArcFade)
	})
}

// =============================================================================
// Control (single writer)
// =============================================================================

// Resize sets the canvas size. In-flight photons are re-placed against the
// new layout and their trails are scaled with it.
func (e *Engine) Resize(w, h float64) {
	e.width, e.height = w, h
	e.layout = nodegraph.Compute(w, h)
	if !e.layout.Valid() {
		return
	}

	// Scale against the last drawable size; a degenerate size in between
	// does not move trails.
	sx, sy := 1.0, 1.0
	if old := e.placed; old.Valid() {
		sx, sy = w/old.Width, h/old.Height
	}
	e.placed = e.layout
	for _, p := range e.pairs {
		for _, ph := range []*photon.Photon{p.Signal, p.Idler} {
			ph.Rescale(sx, sy)
			ph.Place(e.layout)
		}
	}
}

// Size returns the canvas size.
func (e *Engine) Size() (w, h float64) { return e.width, e.height }

// Select focuses tok. When the token changes all live state is cleared,
// including staged events and de-duplication memory. Selecting the focused
// token again is a no-op and reports false.
func (e *Engine) Select(tok event.Token) bool {
	e.mu.Lock()
	prev := e.token
	e.token = tok
	if prev.Address == tok.Address {
		e.mu.Unlock()
		return false
	}
	// Events staged for the old token are dropped under the same lock that
	// swaps it, so a Feed racing the switch is either rejected or kept.
	e.clearStaged()
	e.mu.Unlock()

	e.clearLive()
	e.hooks.OnSelect(prev.Address, tok.Address)
	e.logger.Debug("selection changed", "from", prev, "to", tok)
	return true
}

// Reset clears all live state and counters but keeps the focused token and
// canvas size.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.clearStaged()
	e.mu.Unlock()
	e.clearLive()
}

// clearStaged drops the inbox and de-duplication memory. The caller holds mu.
func (e *Engine) clearStaged() {
	e.inbox = nil
	clear(e.seen)
	e.seenOrder = nil
	e.dropped, e.duplicates, e.rejected = 0, 0, 0
}

func (e *Engine) clearLive() {
	e.pairs = nil
	e.hits = nil
	e.arcs = nil
	e.pattern.Clear()
	e.lastTick = time.Time{}
	e.stats = Stats{}
}

// =============================================================================
// Read side
// =============================================================================

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.Live = len(e.pairs)
	s.Hits = len(e.hits)
	s.Arcs = len(e.arcs)

	e.mu.Lock()
	s.Staged = len(e.inbox)
	s.Dropped = e.dropped
	s.Duplicates = e.duplicates
	s.Rejected = e.rejected
	e.mu.Unlock()
	return s
}

// Snapshot returns a deep copy of the current state for rendering.
func (e *Engine) Snapshot() *Frame {
	pairs := make([]*photon.Pair, len(e.pairs))
	for i, p := range e.pairs {
		pairs[i] = p.Clone()
	}
	return &Frame{
		Time:    e.now,
		Layout:  nodegraph.Compute(e.width, e.height),
		Token:   e.Token(),
		Pairs:   pairs,
		Hits:    slices.Clone(e.hits),
		Arcs:    slices.Clone(e.arcs),
		Pattern: e.pattern.Bins(),
		HitTTL:  e.cfg.HitTTL,
		Stats:   e.Stats(),
	}
}
