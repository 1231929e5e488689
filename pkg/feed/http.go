package feed

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/httputil"
	"github.com/matzehuels/retrocausal/pkg/observability"
)

// DefaultPollInterval is used when HTTPSource.Interval is unset.
const DefaultPollInterval = 5 * time.Second

// TokenPlaceholder in an HTTPSource URL is replaced by the current token.
const TokenPlaceholder = "{token}"

// HTTPSource polls a JSON endpoint for records. The body may be an array of
// records, NDJSON, or a single market record.
type HTTPSource struct {
	URL      string
	Interval time.Duration
	Client   *httputil.Client
	Logger   *log.Logger

	// Token returns the selected token address. It fills the URL placeholder
	// and records that omit their token. Polls are skipped while the URL
	// needs a token and none is selected.
	Token func() string
}

func (s *HTTPSource) Name() string { return "http" }

// Run polls until ctx ends. Poll failures are logged and retried on the
// next tick.
func (s *HTTPSource) Run(ctx context.Context, sink Sink) error {
	if err := errors.ValidateURL(s.URL); err != nil {
		return err
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Poll(ctx, sink); err != nil && ctx.Err() == nil {
			loggerOr(s.Logger).Warn("poll failed", "url", s.URL, "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches once and stages the decoded events oldest first.
// It returns how many the sink accepted.
func (s *HTTPSource) Poll(ctx context.Context, sink Sink) (int, error) {
	token := ""
	if s.Token != nil {
		token = s.Token()
	}
	url := s.URL
	if strings.Contains(url, TokenPlaceholder) {
		if token == "" {
			return 0, nil
		}
		url = strings.ReplaceAll(url, TokenPlaceholder, token)
	}

	client := s.Client
	if client == nil {
		client = httputil.NewClient()
	}
	hooks := observability.Feed()
	start := time.Now()

	data, err := client.Fetch(ctx, url)
	if err != nil {
		hooks.OnPollError(ctx, s.Name(), err)
		return 0, err
	}
	events, skipped, err := event.DecodeEvents(bytes.NewReader(data))
	if err != nil {
		hooks.OnPollError(ctx, s.Name(), err)
		return 0, err
	}
	if skipped > 0 {
		loggerOr(s.Logger).Debug("skipped malformed records", "url", url, "n", skipped)
	}
	hooks.OnPoll(ctx, s.Name(), len(events), time.Since(start))

	if token != "" {
		for i, ev := range events {
			events[i] = withToken(ev, token)
		}
	}
	slices.SortStableFunc(events, func(a, b event.Event) int {
		return a.Time().Compare(b.Time())
	})
	return stage(ctx, s.Name(), sink, events), nil
}

func withToken(ev event.Event, token string) event.Event {
	switch {
	case ev.Trade != nil && ev.Trade.Token == "":
		t := *ev.Trade
		t.Token = token
		return event.FromTrade(t)
	case ev.Market != nil && ev.Market.Token == "":
		m := *ev.Market
		m.Token = token
		return event.FromMarket(m)
	}
	return ev
}
