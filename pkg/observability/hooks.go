// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about engine frames, feed polling, and HTTP calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so library packages
// stay free of import cycles and backend dependencies.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEngineHooks(&myEngineHooks{})
//	    observability.SetFeedHooks(&myFeedHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Engine().OnPairSpawned(token, "erased")
//	observability.Feed().OnPoll(ctx, "http", n, duration)
//
// Engine hooks are called from the frame loop and must return quickly.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Engine Hooks
// =============================================================================

// EngineHooks receives events from the animation engine. The engine runs
// synchronously without a context, so these hooks take none.
type EngineHooks interface {
	// OnPairSpawned records a new photon pair. kind is "which-path" or "erased".
	OnPairSpawned(token, kind string)

	// OnPairsRemoved records pairs leaving the live set. reason is one of
	// "retired", "expired", or "evicted".
	OnPairsRemoved(reason string, n int)

	// OnSelect records a change of the focused token.
	OnSelect(from, to string)

	// OnFrame records one completed frame.
	OnFrame(live int, duration time.Duration)
}

// =============================================================================
// Feed Hooks
// =============================================================================

// FeedHooks receives events from event sources.
type FeedHooks interface {
	// OnPoll records one successful fetch of n records.
	OnPoll(ctx context.Context, source string, n int, duration time.Duration)

	// OnPollError records a failed fetch.
	OnPollError(ctx context.Context, source string, err error)

	// OnStaged records an event handed to the engine and whether it was accepted.
	OnStaged(ctx context.Context, source, key string, accepted bool)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client and server operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnPairSpawned(string, string) {}
func (NoopEngineHooks) OnPairsRemoved(string, int)   {}
func (NoopEngineHooks) OnSelect(string, string)      {}
func (NoopEngineHooks) OnFrame(int, time.Duration)   {}

// NoopFeedHooks is a no-op implementation of FeedHooks.
type NoopFeedHooks struct{}

func (NoopFeedHooks) OnPoll(context.Context, string, int, time.Duration) {}
func (NoopFeedHooks) OnPollError(context.Context, string, error)         {}
func (NoopFeedHooks) OnStaged(context.Context, string, string, bool)     {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	engineHooks EngineHooks = NoopEngineHooks{}
	feedHooks   FeedHooks   = NoopFeedHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetEngineHooks registers custom engine hooks.
// This should be called once at application startup before any engine is created.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetFeedHooks registers custom feed hooks.
// This should be called once at application startup before any feed runs.
func SetFeedHooks(h FeedHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		feedHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Feed returns the registered feed hooks.
func Feed() FeedHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return feedHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	feedHooks = NoopFeedHooks{}
	httpHooks = NoopHTTPHooks{}
}
