package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// EqualWeight splits the investable fraction of the strategy's equity evenly
// across the signaled instruments. Direction follows the signal's sign.
//
// Idempotence is an explicit contract here: with Once enabled the stage
// sizes each instrument at most one time and returns nothing for
// instruments it has already initialized, so replaying history cannot
// double-size positions.
type EqualWeight struct {
	reserve decimal.Decimal
	once    bool

	initialized map[schema.Instrument]struct{}
}

// EqualWeightOption tweaks the construction stage.
type EqualWeightOption func(*EqualWeight)

// WithReserve keeps the given fraction of capital uninvested.
func WithReserve(reserve decimal.Decimal) EqualWeightOption {
	return func(w *EqualWeight) { w.reserve = reserve }
}

// WithOnce enables once-per-instrument sizing.
func WithOnce() EqualWeightOption {
	return func(w *EqualWeight) { w.once = true }
}

// NewEqualWeight builds the stage. The reserve must stay in [0, 1).
func NewEqualWeight(opts ...EqualWeightOption) (*EqualWeight, error) {
	w := &EqualWeight{initialized: make(map[schema.Instrument]struct{})}
	for _, opt := range opts {
		opt(w)
	}
	if w.reserve.IsNegative() || w.reserve.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("equal weight reserve out of [0, 1): %s", w.reserve)
	}
	return w, nil
}

func (w *EqualWeight) Targets(c *Context, signals schema.Signals) (schema.Targets, error) {
	fresh := make([]schema.Instrument, 0, len(signals))
	for _, instrument := range signals.Instruments() {
		if w.once {
			if _, done := w.initialized[instrument]; done {
				continue
			}
		}
		fresh = append(fresh, instrument)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	equity := c.Portfolio.Equity(c.Market.LastPrice)
	investable := equity.Mul(decimal.NewFromInt(1).Sub(w.reserve))
	perInstrument := investable.Div(decimal.NewFromInt(int64(len(fresh))))

	targets := make(schema.Targets, len(fresh))
	for _, instrument := range fresh {
		price, ok := c.Market.LastPrice(instrument)
		if !ok || price.IsZero() {
			// No observed price yet; sizing waits for the next event.
			continue
		}
		qty := perInstrument.Div(price)
		if signals[instrument].IsShort() {
			qty = qty.Neg()
		}
		targets[instrument] = qty
		if w.once {
			w.initialized[instrument] = struct{}{}
		}
	}
	return targets, nil
}
