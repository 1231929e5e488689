// Package feed delivers source events to the engine.
//
// Feeds are the engine's external collaborators. Each [Source] pulls or
// receives records from somewhere (a replay file, an HTTP endpoint polled on
// an interval, a Redis pub/sub channel), decodes them into events and hands
// them to a [Sink]. De-duplication and token filtering belong to the sink;
// sources forward everything they decode.
//
// Feeds are best-effort: a failed poll or a malformed record is logged and
// skipped, never fatal. A source returns nil when its context ends.
package feed

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/observability"
)

// Sink accepts staged events. Both engine.Engine and engine.Loop satisfy it.
type Sink interface {
	Feed(event.Event) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event.Event) bool

func (f SinkFunc) Feed(ev event.Event) bool { return f(ev) }

// Source produces events until ctx is cancelled or it runs dry.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

// Run runs all sources concurrently against sink and waits for them.
// The first source error cancels the others.
func Run(ctx context.Context, sink Sink, sources ...Source) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error { return src.Run(ctx, sink) })
	}
	return g.Wait()
}

// stage forwards events to sink and reports each to the feed hooks.
// It returns how many were accepted.
func stage(ctx context.Context, source string, sink Sink, events []event.Event) int {
	hooks := observability.Feed()
	accepted := 0
	for _, ev := range events {
		ok := sink.Feed(ev)
		if ok {
			accepted++
		}
		hooks.OnStaged(ctx, source, ev.Key(), ok)
	}
	return accepted
}

func loggerOr(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}

// sleep waits for d or until ctx ends, reporting false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
