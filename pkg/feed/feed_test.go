package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/matzehuels/retrocausal/pkg/engine"
	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/httputil"
	"github.com/matzehuels/retrocausal/pkg/observability"
)

var (
	_ Sink = (*engine.Engine)(nil)
	_ Sink = (*engine.Loop)(nil)
)

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Feed(ev event.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

func (r *recorder) Len() int { return len(r.Events()) }

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const replay = `{"type":"trade","signature":"a","token":"MINT","timestamp":1700000000,"side":"buy","amount":"12.5"}
{"type":"bogus"}
{"type":"market","token":"MINT","timestamp":1700000001,"price":0.01,"market_cap":1000000}
{"signature":"b","token":"MINT","timestamp":1700000002,"side":"sell","amount":3}
`

func TestFileSourceReplay(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	src := &FileSource{Path: writeFile(t, replay)}
	require.NoError(t, src.Run(context.Background(), rec))

	got := rec.Events()
	require.Len(t, got, 3)
	assert.Equal(t, "trade:a", got[0].Key())
	assert.Equal(t, event.KindMarket, got[1].Kind)
	assert.Equal(t, "trade:b", got[2].Key())
	assert.Equal(t, 12.5, got[0].Trade.Amount)
	assert.Equal(t, time.Unix(1700000000, 0), got[0].Trade.Time)
}

func TestFileSourceRestamp(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	rec := &recorder{}
	src := &FileSource{Path: writeFile(t, replay), Restamp: true, now: func() time.Time { return now }}
	require.NoError(t, src.Run(context.Background(), rec))
	for _, ev := range rec.Events() {
		assert.Equal(t, now, ev.Time())
	}
}

func TestFileSourceLoopRekeys(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	src := &FileSource{Path: writeFile(t, replay), Interval: time.Millisecond, Loop: true}

	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, rec) }()

	require.Eventually(t, func() bool { return rec.Len() >= 7 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got := rec.Events()
	assert.Equal(t, "trade:a", got[0].Key())
	assert.Equal(t, "trade:a#1", got[3].Key())
	assert.Equal(t, "trade:b#1", got[5].Key())
	assert.Equal(t, "trade:a#2", got[6].Key())
	assert.NotEqual(t, got[1].Key(), got[4].Key(), "market samples restamped per round")
}

func TestFileSourceLoopZeroIntervalIsPaced(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), MinRoundPause/2)
	defer cancel()
	var n atomic.Int64
	sink := SinkFunc(func(event.Event) bool {
		n.Add(1)
		return true
	})
	path := writeFile(t, `{"type":"trade","signature":"a","amount":"1"}`+"\n")

	require.NoError(t, (&FileSource{Path: path, Loop: true}).Run(ctx, sink))
	assert.Equal(t, int64(1), n.Load(), "a looping replay waits between rounds")
}

func TestFileSourceMissing(t *testing.T) {
	src := &FileSource{Path: filepath.Join(t.TempDir(), "nope.json")}
	err := src.Run(context.Background(), &recorder{})
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "err = %v", err)

	err = (&FileSource{}).Run(context.Background(), &recorder{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "err = %v", err)
}

func TestFileSourceIntoEngineDedupes(t *testing.T) {
	e := engine.New(engine.WithSize(800, 600))
	path := writeFile(t, replay+replay)
	require.NoError(t, (&FileSource{Path: path}).Run(context.Background(), e))

	st := e.Stats()
	assert.Equal(t, 3, st.Staged)
	assert.Equal(t, uint64(3), st.Duplicates)
}

func TestHTTPSourcePoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades/MINT", r.URL.Path)
		w.Write([]byte(`[
			{"signature":"new","timestamp":1700000009,"side":"buy","amount":1},
			{"signature":"old","timestamp":1700000001,"side":"sell","amount":2}
		]`))
	}))
	defer srv.Close()

	rec := &recorder{}
	src := &HTTPSource{
		URL:    srv.URL + "/trades/" + TokenPlaceholder,
		Client: httputil.NewClient(httputil.WithHTTPClient(srv.Client())),
		Token:  func() string { return "MINT" },
	}
	n, err := src.Poll(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := rec.Events()
	require.Len(t, got, 2)
	assert.Equal(t, "trade:old", got[0].Key(), "oldest first")
	assert.Equal(t, "MINT", got[0].TokenAddress())
	assert.Equal(t, "MINT", got[1].TokenAddress())
}

func TestHTTPSourceNeedsToken(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	src := &HTTPSource{URL: srv.URL + "/" + TokenPlaceholder, Token: func() string { return "" }}
	n, err := src.Poll(context.Background(), &recorder{})
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, hits.Load())
}

type pollErrors struct {
	observability.NoopFeedHooks
	n atomic.Int32
}

func (p *pollErrors) OnPollError(context.Context, string, error) { p.n.Add(1) }

func TestHTTPSourcePollError(t *testing.T) {
	hooks := &pollErrors{}
	observability.SetFeedHooks(hooks)
	t.Cleanup(observability.Reset)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	src := &HTTPSource{URL: srv.URL}
	_, err := src.Poll(context.Background(), &recorder{})
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "err = %v", err)
	assert.Equal(t, int32(1), hooks.n.Load())
}

func TestHTTPSourceRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"MINT","timestamp":1700000000,"price":"0.5","market_cap":"2000000"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	src := &HTTPSource{URL: srv.URL, Interval: 5 * time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, rec) }()

	require.Eventually(t, func() bool { return rec.Len() >= 2 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	ev := rec.Events()[0]
	require.Equal(t, event.KindMarket, ev.Kind)
	assert.Equal(t, 0.5, ev.Market.Price)
	assert.Equal(t, 2e6, ev.Market.MarketCap)
}

func TestHTTPSourceBadURL(t *testing.T) {
	err := (&HTTPSource{URL: "ftp://x"}).Run(context.Background(), &recorder{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestRedisSource(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}
	src := &RedisSource{Client: rdb}

	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, rec) }()

	require.Eventually(t, func() bool {
		subs, err := rdb.PubSubNumSub(ctx, DefaultChannel).Result()
		return err == nil && subs[DefaultChannel] == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, rdb.Publish(ctx, DefaultChannel, "not json").Err())
	trade := event.FromTrade(event.Trade{
		Signature: "sig-1", Token: "MINT", Side: event.SideSell, Amount: 4,
		Time: time.Unix(1700000000, 0),
	})
	require.NoError(t, Publish(ctx, rdb, "", trade))

	require.Eventually(t, func() bool { return rec.Len() == 1 }, 2*time.Second, time.Millisecond)
	got := rec.Events()[0]
	assert.Equal(t, "trade:sig-1", got.Key())
	assert.Equal(t, event.SideSell, got.Trade.Side)
	assert.Equal(t, 4.0, got.Trade.Amount)

	cancel()
	require.NoError(t, <-done)
}

func TestRedisSourceNoClient(t *testing.T) {
	err := (&RedisSource{}).Run(context.Background(), &recorder{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestPublishInvalid(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	defer rdb.Close()
	err := Publish(context.Background(), rdb, "ch", event.Event{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidEvent))
}

func TestRunFansIn(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	err := Run(context.Background(), rec,
		&FileSource{Path: writeFile(t, replay)},
		&FileSource{Path: writeFile(t, replay)},
	)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.Len())
}

func TestRunFirstErrorCancels(t *testing.T) {
	rec := &recorder{}
	err := Run(context.Background(), rec,
		&FileSource{Path: writeFile(t, replay), Interval: time.Hour},
		&FileSource{Path: filepath.Join(t.TempDir(), "missing")},
	)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "err = %v", err)
}

func TestSinkFunc(t *testing.T) {
	var n int
	sink := SinkFunc(func(event.Event) bool { n++; return n == 1 })
	evs := []event.Event{
		event.FromTrade(event.Trade{Signature: "x"}),
		event.FromTrade(event.Trade{Signature: "y"}),
	}
	assert.Equal(t, 1, stage(context.Background(), "test", sink, evs))
}
