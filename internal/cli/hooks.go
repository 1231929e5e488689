package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/retrocausal/pkg/observability"
)

// slowFrame is the tick duration above which frames are logged.
const slowFrame = 16 * time.Millisecond

// logHooks reports engine, feed and HTTP events at debug level.
type logHooks struct {
	logger *log.Logger
}

func registerLogHooks(l *log.Logger) {
	h := logHooks{logger: l}
	observability.SetEngineHooks(h)
	observability.SetFeedHooks(h)
	observability.SetHTTPHooks(h)
}

func (h logHooks) OnPairSpawned(token, kind string) {
	h.logger.Debug("pair spawned", "token", token, "kind", kind)
}

func (h logHooks) OnPairsRemoved(reason string, n int) {
	h.logger.Debug("pairs removed", "reason", reason, "n", n)
}

func (h logHooks) OnSelect(from, to string) {
	h.logger.Debug("selection changed", "from", from, "to", to)
}

func (h logHooks) OnFrame(live int, d time.Duration) {
	if d > slowFrame {
		h.logger.Debug("slow frame", "live", live, "dur", d)
	}
}

func (h logHooks) OnPoll(_ context.Context, source string, n int, d time.Duration) {
	h.logger.Debug("polled", "source", source, "events", n, "dur", d.Round(time.Millisecond))
}

func (h logHooks) OnPollError(_ context.Context, source string, err error) {
	h.logger.Debug("poll error", "source", source, "err", err)
}

func (h logHooks) OnStaged(_ context.Context, source, key string, accepted bool) {
	if !accepted {
		h.logger.Debug("event not staged", "source", source, "key", key)
	}
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "dur", d.Round(time.Millisecond))
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}
