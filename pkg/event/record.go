package event

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matzehuels/retrocausal/pkg/errors"
)

// Record types on the wire.
const (
	RecordTrade  = "trade"
	RecordMarket = "market"
)

// secondsCutoff separates unix-second from unix-millisecond timestamps.
// 1e12 ms is September 2001; no second-resolution feed reaches it.
const secondsCutoff = 1_000_000_000_000

// Record is the JSON wire format shared by all feeds.
//
// Numeric fields accept JSON numbers or decimal strings. Timestamps are unix
// seconds or milliseconds. When Type is empty it is inferred: a record with
// a signature is a trade, anything else a market sample.
type Record struct {
	Type      string          `json:"type,omitempty"`
	Signature string          `json:"signature,omitempty"`
	Token     string          `json:"token,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Side      string          `json:"side,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	Fee       decimal.Decimal `json:"fee"`
	MarketCap decimal.Decimal `json:"market_cap"`
	Liquidity decimal.Decimal `json:"liquidity"`
	ChangePct decimal.Decimal `json:"change_pct"`
}

// Event converts the record into a normalized event.
func (r Record) Event() (Event, error) {
	typ := strings.ToLower(strings.TrimSpace(r.Type))
	if typ == "" {
		typ = RecordMarket
		if r.Signature != "" {
			typ = RecordTrade
		}
	}

	switch typ {
	case RecordTrade:
		if err := errors.ValidateSignature(r.Signature); err != nil {
			return Event{}, err
		}
		return FromTrade(Trade{
			Signature: r.Signature,
			Token:     r.Token,
			Time:      parseTimestamp(r.Timestamp),
			Side:      ParseSide(r.Side),
			Amount:    r.Amount.InexactFloat64(),
			Price:     r.Price.InexactFloat64(),
			Fee:       r.Fee.InexactFloat64(),
		}), nil
	case RecordMarket:
		return FromMarket(MarketSample{
			Token:     r.Token,
			Time:      parseTimestamp(r.Timestamp),
			Price:     r.Price.InexactFloat64(),
			MarketCap: r.MarketCap.InexactFloat64(),
			Liquidity: r.Liquidity.InexactFloat64(),
			ChangePct: r.ChangePct.InexactFloat64(),
		}), nil
	default:
		return Event{}, errors.New(errors.ErrCodeInvalidEvent, "unknown record type %q", r.Type)
	}
}

// NewRecord converts an event back to its wire form.
func NewRecord(e Event) Record {
	switch {
	case e.Trade != nil:
		t := e.Trade
		return Record{
			Type:      RecordTrade,
			Signature: t.Signature,
			Token:     t.Token,
			Timestamp: formatTimestamp(t.Time),
			Side:      sideTag(t.Side),
			Amount:    decimal.NewFromFloat(t.Amount),
			Price:     decimal.NewFromFloat(t.Price),
			Fee:       decimal.NewFromFloat(t.Fee),
		}
	case e.Market != nil:
		m := e.Market
		return Record{
			Type:      RecordMarket,
			Token:     m.Token,
			Timestamp: formatTimestamp(m.Time),
			Price:     decimal.NewFromFloat(m.Price),
			MarketCap: decimal.NewFromFloat(m.MarketCap),
			Liquidity: decimal.NewFromFloat(m.Liquidity),
			ChangePct: decimal.NewFromFloat(m.ChangePct),
		}
	}
	return Record{}
}

// ParseRecord decodes a single JSON record.
func ParseRecord(data []byte) (Event, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Event{}, errors.Wrap(errors.ErrCodeInvalidEvent, err, "decode record")
	}
	return r.Event()
}

// DecodeRecords reads either a JSON array of records or newline-delimited
// JSON objects from r.
func DecodeRecords(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidEvent, err, "read records")
	}

	if first == '[' {
		var recs []Record
		if err := json.NewDecoder(br).Decode(&recs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidEvent, err, "decode record array")
		}
		return recs, nil
	}

	var recs []Record
	dec := json.NewDecoder(br)
	for {
		var rec Record
		if err := dec.Decode(&rec); err == io.EOF {
			return recs, nil
		} else if err != nil {
			return recs, errors.Wrap(errors.ErrCodeInvalidEvent, err, "decode record %d", len(recs)+1)
		}
		recs = append(recs, rec)
	}
}

// DecodeEvents decodes records from r and converts them to events. Records
// that fail conversion are skipped and reported through the returned count.
func DecodeEvents(r io.Reader) (events []Event, skipped int, err error) {
	recs, err := DecodeRecords(r)
	if err != nil {
		return nil, 0, err
	}
	events = make([]Event, 0, len(recs))
	for _, rec := range recs {
		ev, err := rec.Event()
		if err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

func parseTimestamp(ts int64) time.Time {
	switch {
	case ts <= 0:
		return time.Time{}
	case ts < secondsCutoff:
		return time.Unix(ts, 0)
	default:
		return time.UnixMilli(ts)
	}
}

func formatTimestamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func sideTag(s Side) string {
	if s == SideUnknown {
		return ""
	}
	return s.String()
}
