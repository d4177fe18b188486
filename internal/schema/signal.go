package schema

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrStrengthOutOfRange   = errors.New("signal strength out of [-1, 1]")
	ErrConfidenceOutOfRange = errors.New("signal confidence out of [0, 1]")
)

// SignalKind describes what produced a signal.
type SignalKind uint16

const (
	SignalKindUnknown SignalKind = iota
	SignalKindTechnical
	SignalKindFundamental
	SignalKindSentiment
)

// Signal is the output of an alpha stage for a single instrument.
// Strength is directional in [-1, 1]; Confidence is in [0, 1].
type Signal struct {
	Instrument Instrument
	Time       time.Time
	Kind       SignalKind
	Source     string
	Strength   decimal.Decimal
	Confidence decimal.Decimal
}

var one = decimal.NewFromInt(1)

// Validate checks the numeric bounds of the signal.
func (s Signal) Validate() error {
	if s.Strength.Abs().GreaterThan(one) {
		return ErrStrengthOutOfRange
	}
	if s.Confidence.IsNegative() || s.Confidence.GreaterThan(one) {
		return ErrConfidenceOutOfRange
	}
	return nil
}

// IsLong reports whether the signal points long.
func (s Signal) IsLong() bool { return s.Strength.IsPositive() }

// IsShort reports whether the signal points short.
func (s Signal) IsShort() bool { return s.Strength.IsNegative() }

// Signals maps instruments to the signal an alpha stage emitted for them.
// Alpha stages omit instruments they have no opinion on.
type Signals map[Instrument]Signal

// Instruments returns the signal domain in deterministic order.
func (s Signals) Instruments() []Instrument {
	list := make([]Instrument, 0, len(s))
	for instrument := range s {
		list = append(list, instrument)
	}
	SortInstruments(list)
	return list
}
