package photon

import (
	"fmt"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/nodegraph"
)

// fixedRand always returns the same draw.
type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

func trade(side event.Side, amount float64, at time.Time) event.Event {
	return event.FromTrade(event.Trade{Signature: "sig", Side: side, Amount: amount, Time: at})
}

func TestWhichPathProbability(t *testing.T) {
	f := NewFactory()
	now := t0

	tests := []struct {
		name string
		ev   event.Event
		want float64
	}{
		// 0.5 + 0.2 + 0.15*log10(5e6+1)/8 - 0.1
		{"large fresh sell", trade(event.SideSell, 5_000_000, now), 0.72557},
		{"large fresh buy", trade(event.SideBuy, 5_000_000, now), 0.32557},
		{"unknown side no magnitude no time", trade(event.SideUnknown, 0, time.Time{}), 0.5},
		{"old sell", trade(event.SideSell, 0, now.Add(-time.Hour)), 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.WhichPathProbability(tt.ev, now)
			if math.Abs(got-tt.want) > 1e-4 {
				t.Errorf("WhichPathProbability = %.5f, want %.5f", got, tt.want)
			}
		})
	}
}

func TestWhichPathProbabilityClamped(t *testing.T) {
	p := DefaultParams()
	p.SideBias = 2
	f := NewFactory(WithParams(p))

	if got := f.WhichPathProbability(trade(event.SideSell, 0, time.Time{}), t0); got != p.WhichMax {
		t.Errorf("sell = %v, want %v", got, p.WhichMax)
	}
	if got := f.WhichPathProbability(trade(event.SideBuy, 0, time.Time{}), t0); got != p.WhichMin {
		t.Errorf("buy = %v, want %v", got, p.WhichMin)
	}
}

func TestNewPairKindFollowsDraw(t *testing.T) {
	l := nodegraph.Compute(800, 600)
	ev := trade(event.SideSell, 5_000_000, t0) // w ≈ 0.7256

	tests := []struct {
		draw     float64
		wantKind IdlerKind
		wantPath []nodegraph.Name
	}{
		{0.5, KindWhichPath, nodegraph.WhichPath},
		{0.9, KindErased, nodegraph.ErasedPath},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.draw), func(t *testing.T) {
			f := NewFactory(WithRand(fixedRand(tt.draw)))
			pair := f.NewPair(ev, l, t0)

			if pair.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", pair.Kind, tt.wantKind)
			}
			if !slices.Equal(pair.Idler.Path, tt.wantPath) {
				t.Errorf("idler path = %v, want %v", pair.Idler.Path, tt.wantPath)
			}
			if !slices.Equal(pair.Signal.Path, nodegraph.SignalPath) {
				t.Errorf("signal path = %v, want %v", pair.Signal.Path, nodegraph.SignalPath)
			}
		})
	}
}

func TestNewPairSignalPathIndependentOfSide(t *testing.T) {
	l := nodegraph.Compute(800, 600)
	f := NewFactory(WithSeed(1))
	for _, side := range []event.Side{event.SideBuy, event.SideSell, event.SideUnknown} {
		for range 20 {
			pair := f.NewPair(trade(side, 1000, t0), l, t0)
			if !slices.Equal(pair.Signal.Path, nodegraph.SignalPath) {
				t.Fatalf("%v: signal path = %v", side, pair.Signal.Path)
			}
			if pair.Signal.Last() != nodegraph.Primary {
				t.Fatalf("%v: signal ends at %v", side, pair.Signal.Last())
			}
		}
	}
}

func TestNewPairPlacement(t *testing.T) {
	l := nodegraph.Compute(800, 600)
	n := 0
	f := NewFactory(WithIDs(func() string { n++; return fmt.Sprintf("pair-%d", n) }))

	pair := f.NewPair(trade(event.SideBuy, 100, t0), l, t0)
	if pair.ID != "pair-1" || pair.Signal.ID != "pair-1/signal" || pair.Idler.ID != "pair-1/idler" {
		t.Errorf("ids = %q %q %q", pair.ID, pair.Signal.ID, pair.Idler.ID)
	}
	if pair.Signal.Pos != l.Pos(nodegraph.Laser) || pair.Idler.Pos != l.Pos(nodegraph.Laser) {
		t.Error("photons not placed at the laser")
	}
	if pair.Signal.Target != l.Pos(nodegraph.BBO) {
		t.Errorf("signal target = %v, want BBO", pair.Signal.Target)
	}
	if pair.Idler.Size > pair.Signal.Size {
		t.Error("idler larger than signal")
	}
	if !pair.Created.Equal(t0) {
		t.Errorf("Created = %v", pair.Created)
	}

	pair.Signal.Path[0] = nodegraph.Engine
	if nodegraph.SignalPath[0] != nodegraph.Laser {
		t.Fatal("pair path aliases the shared path")
	}
}

func TestDerivedMinimums(t *testing.T) {
	f := NewFactory()
	p := f.Params()
	ev := trade(event.SideUnknown, 0, time.Time{})

	if got := f.Size(ev); got != p.MinSize {
		t.Errorf("Size = %v, want %v", got, p.MinSize)
	}
	if got := f.Speed(ev, t0); got != p.MinSpeed {
		t.Errorf("Speed = %v, want %v", got, p.MinSpeed)
	}
	slip := f.Slippage(ev)
	if slip != p.MinSlippage {
		t.Errorf("Slippage = %v, want %v", slip, p.MinSlippage)
	}
	if got := f.TrailLen(slip); got != p.MinTrail {
		t.Errorf("TrailLen = %v, want %v", got, p.MinTrail)
	}
}

func TestSizeMonotonicInMagnitude(t *testing.T) {
	f := NewFactory()
	p := f.Params()
	prev := 0.0
	for _, m := range []float64{0, 1, 10, 1e3, 1e5, 1e7, 1e9, 1e12} {
		got := f.Size(trade(event.SideBuy, m, t0))
		if got < prev {
			t.Fatalf("Size(%g) = %v < %v", m, got, prev)
		}
		if got < p.MinSize || got > p.MaxSize {
			t.Fatalf("Size(%g) = %v outside bounds", m, got)
		}
		prev = got
	}
	if prev != p.MaxSize {
		t.Errorf("Size(1e12) = %v, want MaxSize", prev)
	}
}

func TestSpeedDecaysWithAge(t *testing.T) {
	f := NewFactory()
	p := f.Params()

	fresh := f.Speed(trade(event.SideBuy, 1, t0), t0)
	minute := f.Speed(trade(event.SideBuy, 1, t0.Add(-time.Minute)), t0)
	hour := f.Speed(trade(event.SideBuy, 1, t0.Add(-time.Hour)), t0)

	if fresh != p.MaxSpeed {
		t.Errorf("fresh speed = %v, want %v", fresh, p.MaxSpeed)
	}
	if math.Abs(minute-p.MaxSpeed/2) > 1e-9 {
		t.Errorf("one half-life speed = %v, want %v", minute, p.MaxSpeed/2)
	}
	if hour != p.MinSpeed {
		t.Errorf("old speed = %v, want %v", hour, p.MinSpeed)
	}
}

func TestSlippageFromPriceImpact(t *testing.T) {
	f := NewFactory()
	ev := event.FromMarket(event.MarketSample{
		Token:     "mint",
		MarketCap: 1_000_000,
		Liquidity: 500_000,
		ChangePct: 1, // magnitude 10_000, impact 0.02
	})
	if got := f.Slippage(ev); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("Slippage = %v, want 0.2", got)
	}
	if got := f.TrailLen(f.Params().MaxSlippage); got != f.Params().MaxTrail {
		t.Errorf("TrailLen(max) = %d, want %d", got, f.Params().MaxTrail)
	}
}

func TestSeedReproducible(t *testing.T) {
	l := nodegraph.Compute(800, 600)
	kinds := func(seed uint64) []IdlerKind {
		f := NewFactory(WithSeed(seed))
		var out []IdlerKind
		for range 50 {
			out = append(out, f.NewPair(trade(event.SideUnknown, 10, time.Time{}), l, t0).Kind)
		}
		return out
	}
	if !slices.Equal(kinds(42), kinds(42)) {
		t.Error("same seed produced different sequences")
	}
}

func ExampleFactory_WhichPathProbability() {
	f := NewFactory()
	now := time.Unix(1_700_000_000, 0)
	ev := event.FromTrade(event.Trade{Signature: "sig", Side: event.SideSell, Amount: 5_000_000, Time: now})
	fmt.Printf("%.4f\n", f.WhichPathProbability(ev, now))
	// Output: 0.7256
}
