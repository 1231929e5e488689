package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Engine hooks
	e := NoopEngineHooks{}
	e.OnPairSpawned("BONK", "erased")
	e.OnPairsRemoved("evicted", 3)
	e.OnSelect("", "BONK")
	e.OnFrame(12, time.Millisecond)

	// Feed hooks
	f := NoopFeedHooks{}
	f.OnPoll(ctx, "http", 20, time.Second)
	f.OnPollError(ctx, "redis", errors.New("boom"))
	f.OnStaged(ctx, "file", "trade:abc", true)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "feed.local", "/trades")
	h.OnResponse(ctx, "GET", "feed.local", "/trades", 200, time.Second)
	h.OnError(ctx, "GET", "feed.local", "/trades", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Engine() should return NoopEngineHooks by default")
	}
	if _, ok := Feed().(NoopFeedHooks); !ok {
		t.Error("Feed() should return NoopFeedHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customEngine := &testEngineHooks{}
	SetEngineHooks(customEngine)
	if Engine() != customEngine {
		t.Error("SetEngineHooks should set custom hooks")
	}

	customFeed := &testFeedHooks{}
	SetFeedHooks(customFeed)
	if Feed() != customFeed {
		t.Error("SetFeedHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Reset() should restore NoopEngineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testEngineHooks{}
	SetEngineHooks(custom)

	// Setting nil should be ignored
	SetEngineHooks(nil)

	if Engine() != custom {
		t.Error("SetEngineHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testEngineHooks struct{ NoopEngineHooks }
type testFeedHooks struct{ NoopFeedHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
