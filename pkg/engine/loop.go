package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/event"
)

// command is a mutation executed on the loop goroutine between ticks.
type command struct {
	fn   func(*Engine)
	done chan struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithFPS sets the tick rate. Non-positive values keep the default of 60.
func WithFPS(fps int) LoopOption {
	return func(l *Loop) {
		if fps > 0 {
			l.fps = fps
		}
	}
}

// Loop drives an Engine from a ticker on a single goroutine. Feed is
// forwarded directly; every other mutation goes through Do so that the
// engine keeps exactly one writer. The latest Frame is published
// atomically after every tick and command.
type Loop struct {
	engine  *Engine
	fps     int
	cmds    chan command
	frame   atomic.Pointer[Frame]
	running atomic.Bool
	stopped chan struct{}
}

// NewLoop wraps e. The engine must not be used directly once Run starts,
// except through Feed.
func NewLoop(e *Engine, opts ...LoopOption) *Loop {
	l := &Loop{
		engine:  e,
		fps:     DefaultFPS,
		cmds:    make(chan command),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.frame.Store(e.Snapshot())
	return l
}

// Run ticks the engine until ctx is cancelled. On cancellation it stops
// the ticker, clears all live engine state, publishes the empty frame and
// returns nil. Run may be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New(errors.ErrCodeInternal, "loop already running")
	}
	defer close(l.stopped)

	ticker := time.NewTicker(time.Second / time.Duration(l.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.engine.Reset()
			l.publish()
			return nil
		case c := <-l.cmds:
			c.fn(l.engine)
			l.publish()
			close(c.done)
		case now := <-ticker.C:
			l.engine.Tick(now)
			l.publish()
		}
	}
}

func (l *Loop) publish() { l.frame.Store(l.engine.Snapshot()) }

// Frame returns the most recently published frame. It is never nil.
func (l *Loop) Frame() *Frame { return l.frame.Load() }

// Feed stages ev on the engine. Safe from any goroutine.
func (l *Loop) Feed(ev event.Event) bool { return l.engine.Feed(ev) }

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(*Engine)) error {
	c := command{fn: fn, done: make(chan struct{})}
	select {
	case l.cmds <- c:
	case <-l.stopped:
		return errors.New(errors.ErrCodeUnsupported, "loop stopped")
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "engine command")
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "engine command")
	}
}

// Select focuses tok, clearing live state if the token changed.
func (l *Loop) Select(ctx context.Context, tok event.Token) (bool, error) {
	var changed bool
	if err := l.Do(ctx, func(e *Engine) { changed = e.Select(tok) }); err != nil {
		return false, err
	}
	return changed, nil
}

// Resize sets the canvas size.
func (l *Loop) Resize(ctx context.Context, w, h float64) error {
	return l.Do(ctx, func(e *Engine) { e.Resize(w, h) })
}

// Reset clears live state.
func (l *Loop) Reset(ctx context.Context) error {
	return l.Do(ctx, func(e *Engine) { e.Reset() })
}
