package feed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/event"
)

// MinRoundPause is the pause between rounds of a looping replay. It bounds
// the feed rate of a looping file even with a zero Interval.
const MinRoundPause = 100 * time.Millisecond

// FileSource replays a JSON array or NDJSON file of records.
type FileSource struct {
	Path     string
	Interval time.Duration // pause between events; zero replays at once
	Loop     bool          // start over after the last event
	Restamp  bool          // stamp each event with the replay time
	Logger   *log.Logger

	now func() time.Time
}

func (s *FileSource) Name() string { return "file" }

// Load decodes the file, skipping malformed records.
func (s *FileSource) Load() ([]event.Event, error) {
	if err := errors.ValidatePath(s.Path); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open %s", s.Path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", s.Path)
	}
	defer f.Close()

	events, skipped, err := event.DecodeEvents(f)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		loggerOr(s.Logger).Warn("skipped malformed records", "path", s.Path, "n", skipped)
	}
	return events, nil
}

// Run replays the file into sink. It returns nil once the file is exhausted
// (unless looping) or ctx ends.
func (s *FileSource) Run(ctx context.Context, sink Sink) error {
	events, err := s.Load()
	if err != nil {
		return err
	}
	logger := loggerOr(s.Logger)
	logger.Debug("replaying", "path", s.Path, "events", len(events), "loop", s.Loop)
	if len(events) == 0 {
		return nil
	}
	now := s.now
	if now == nil {
		now = time.Now
	}

	for round := 0; ; round++ {
		for _, ev := range events {
			if ctx.Err() != nil {
				return nil
			}
			stage(ctx, s.Name(), sink, []event.Event{replayed(ev, round, s.Restamp || s.Loop, now())})
			if !sleep(ctx, s.Interval) {
				return nil
			}
		}
		if !s.Loop {
			return nil
		}
		if !sleep(ctx, MinRoundPause) {
			return nil
		}
	}
}

// replayed copies ev for replay round. Later rounds get distinct keys so the
// sink does not discard them as duplicates.
func replayed(ev event.Event, round int, restamp bool, now time.Time) event.Event {
	if round > 0 && ev.Trade != nil {
		t := *ev.Trade
		t.Signature = fmt.Sprintf("%s#%d", t.Signature, round)
		ev = event.FromTrade(t)
	}
	if restamp {
		ev = Restamp(ev, now)
	}
	return ev
}

// Restamp returns a copy of ev with its timestamp set to t.
func Restamp(ev event.Event, t time.Time) event.Event {
	switch {
	case ev.Trade != nil:
		tr := *ev.Trade
		tr.Time = t
		return event.FromTrade(tr)
	case ev.Market != nil:
		m := *ev.Market
		m.Time = t
		return event.FromMarket(m)
	}
	return ev
}
