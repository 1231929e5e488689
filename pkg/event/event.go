// Package event defines the source events that seed photon pairs.
//
// A source event is either a trade from the trade feed or a periodic market
// snapshot. Both arrive loosely typed from external collaborators; this
// package turns them into a small tagged union and applies every defaulting
// rule once, at construction, so downstream code never has to guess whether
// a field was present.
//
// Events are read-only values. Nothing in this package is persisted.
package event

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the event union.
type Kind int

const (
	KindTrade Kind = iota + 1
	KindMarket
)

func (k Kind) String() string {
	switch k {
	case KindTrade:
		return "trade"
	case KindMarket:
		return "market"
	default:
		return "unknown"
	}
}

// Side is the directional side of a trade.
type Side int

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseSide parses a side tag case-insensitively. Unrecognized tags map to
// SideUnknown rather than failing.
func ParseSide(s string) Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b", "bid", "long":
		return SideBuy
	case "sell", "s", "ask", "short":
		return SideSell
	default:
		return SideUnknown
	}
}

// Token identifies the focused token chosen by the selection collaborator.
type Token struct {
	Address string `toml:"address" json:"address"`
	Symbol  string `toml:"symbol" json:"symbol,omitempty"`
	Name    string `toml:"name" json:"name,omitempty"`
}

// IsZero reports whether no token is selected.
func (t Token) IsZero() bool { return t.Address == "" }

// String returns the symbol if set, otherwise an abbreviated address.
func (t Token) String() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	if len(t.Address) > 10 {
		return t.Address[:4] + "…" + t.Address[len(t.Address)-4:]
	}
	return t.Address
}

// Trade is one executed swap for a token.
type Trade struct {
	Signature string
	Token     string
	Time      time.Time
	Side      Side
	Amount    float64 // notional, quote-denominated
	Price     float64
	Fee       float64
}

// MarketSample is one periodic market snapshot for a token.
type MarketSample struct {
	Token     string
	Time      time.Time
	Price     float64
	MarketCap float64
	Liquidity float64
	ChangePct float64
}

// Event is the tagged union over trades and market samples.
// Exactly one of Trade and Market is non-nil, matching Kind.
type Event struct {
	Kind   Kind
	Trade  *Trade
	Market *MarketSample
}

// FromTrade builds a trade event, applying defaults.
func FromTrade(t Trade) Event {
	t.Amount = nonNegative(t.Amount)
	t.Price = nonNegative(t.Price)
	t.Fee = nonNegative(t.Fee)
	t.Signature = strings.TrimSpace(t.Signature)
	return Event{Kind: KindTrade, Trade: &t}
}

// FromMarket builds a market-sample event, applying defaults.
func FromMarket(m MarketSample) Event {
	m.Price = nonNegative(m.Price)
	m.MarketCap = nonNegative(m.MarketCap)
	m.Liquidity = nonNegative(m.Liquidity)
	m.ChangePct = finite(m.ChangePct)
	return Event{Kind: KindMarket, Market: &m}
}

// Valid reports whether the union is well formed.
func (e Event) Valid() bool {
	switch e.Kind {
	case KindTrade:
		return e.Trade != nil && e.Market == nil
	case KindMarket:
		return e.Market != nil && e.Trade == nil
	default:
		return false
	}
}

// Key returns the de-duplication key: the signature for trades and the
// token plus sample time for market snapshots. An empty key disables
// de-duplication for the event.
func (e Event) Key() string {
	switch {
	case e.Kind == KindTrade && e.Trade != nil:
		if e.Trade.Signature == "" {
			return ""
		}
		return "trade:" + e.Trade.Signature
	case e.Kind == KindMarket && e.Market != nil:
		if e.Market.Time.IsZero() {
			return ""
		}
		return "market:" + e.Market.Token + ":" + strconv.FormatInt(e.Market.Time.UnixMilli(), 10)
	}
	return ""
}

// TokenAddress returns the token the event belongs to, if known.
func (e Event) TokenAddress() string {
	switch {
	case e.Trade != nil:
		return e.Trade.Token
	case e.Market != nil:
		return e.Market.Token
	}
	return ""
}

// Time returns the event timestamp; the zero time means unknown.
func (e Event) Time() time.Time {
	switch {
	case e.Trade != nil:
		return e.Trade.Time
	case e.Market != nil:
		return e.Market.Time
	}
	return time.Time{}
}

// Age returns how long ago the event happened relative to now.
// ok is false when the timestamp is unknown. Future timestamps yield zero.
func (e Event) Age(now time.Time) (age time.Duration, ok bool) {
	t := e.Time()
	if t.IsZero() {
		return 0, false
	}
	return max(now.Sub(t), 0), true
}

// Magnitude returns the size of the event in quote units: the notional for
// trades, the implied market-cap move for market samples.
func (e Event) Magnitude() float64 {
	switch {
	case e.Trade != nil:
		return e.Trade.Amount
	case e.Market != nil:
		return e.Market.MarketCap * math.Abs(e.Market.ChangePct) / 100
	}
	return 0
}

// Side returns the trade side, or the sign of the price change for samples.
func (e Event) Side() Side {
	switch {
	case e.Trade != nil:
		return e.Trade.Side
	case e.Market != nil:
		switch {
		case e.Market.ChangePct > 0:
			return SideBuy
		case e.Market.ChangePct < 0:
			return SideSell
		}
	}
	return SideUnknown
}

// Price returns the event price, zero if unknown.
func (e Event) Price() float64 {
	switch {
	case e.Trade != nil:
		return e.Trade.Price
	case e.Market != nil:
		return e.Market.Price
	}
	return 0
}

// PriceImpact returns magnitude relative to pool liquidity when liquidity
// is known. Trades carry no liquidity and always report ok=false.
func (e Event) PriceImpact() (impact float64, ok bool) {
	if e.Market == nil || e.Market.Liquidity <= 0 {
		return 0, false
	}
	return e.Magnitude() / e.Market.Liquidity, true
}

func (e Event) String() string {
	switch {
	case e.Trade != nil:
		return fmt.Sprintf("trade %s %s %.2f @ %g", e.Trade.Signature, e.Trade.Side, e.Trade.Amount, e.Trade.Price)
	case e.Market != nil:
		return fmt.Sprintf("market %s cap=%.0f chg=%.2f%%", e.Market.Token, e.Market.MarketCap, e.Market.ChangePct)
	}
	return "invalid event"
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegative(v float64) float64 {
	v = finite(v)
	if v < 0 {
		return 0
	}
	return v
}
