package event

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/schema"
)

// Kind is the event category carried over the bus.
type Kind uint16

const (
	KindUnknown Kind = iota
	KindMarket
	KindEndOfStream
	KindControl
)

func (k Kind) String() string {
	switch k {
	case KindMarket:
		return "market"
	case KindEndOfStream:
		return "end_of_stream"
	case KindControl:
		return "control"
	default:
		return "unknown"
	}
}

// Event is the unit passed through the bus. Events are immutable once
// published.
type Event interface {
	Kind() Kind
	Time() time.Time
}

// Bar is one OHLCV observation for an instrument.
type Bar struct {
	Instrument schema.Instrument
	Time       time.Time
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
}

// MarketEvent carries one or more market-data observations sharing a
// timestamp. Instruments referenced in one event are dispatched together.
type MarketEvent struct {
	At   time.Time
	Bars []Bar
}

func (e *MarketEvent) Kind() Kind      { return KindMarket }
func (e *MarketEvent) Time() time.Time { return e.At }

// Instruments lists the instruments observed in the event, in bar order.
func (e *MarketEvent) Instruments() []schema.Instrument {
	list := make([]schema.Instrument, 0, len(e.Bars))
	for _, bar := range e.Bars {
		list = append(list, bar.Instrument)
	}
	return list
}

// EndOfStreamEvent is terminal for its producing source. A source publishes
// exactly one, as its final act.
type EndOfStreamEvent struct {
	At     time.Time
	Reason string
}

func (e *EndOfStreamEvent) Kind() Kind      { return KindEndOfStream }
func (e *EndOfStreamEvent) Time() time.Time { return e.At }

// ControlSignal enumerates engine control requests.
type ControlSignal uint16

const (
	ControlUnknown ControlSignal = iota
	ControlStop
)

// ControlEvent carries a lifecycle request to the engine.
type ControlEvent struct {
	At     time.Time
	Signal ControlSignal
}

func (e *ControlEvent) Kind() Kind      { return KindControl }
func (e *ControlEvent) Time() time.Time { return e.At }
