package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// PositionLimit caps each target so its notional never exceeds a fraction
// of the strategy's equity. Over-cap targets are truncated to the cap, not
// rejected: truncation moves the value toward safety without discarding the
// whole instruction. The output domain equals the input domain and no
// magnitude ever grows.
type PositionLimit struct {
	maxPosition decimal.Decimal
}

// NewPositionLimit builds the stage; maxPosition is a fraction of equity in
// (0, 1].
func NewPositionLimit(maxPosition decimal.Decimal) (*PositionLimit, error) {
	if !maxPosition.IsPositive() || maxPosition.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("position limit out of (0, 1]: %s", maxPosition)
	}
	return &PositionLimit{maxPosition: maxPosition}, nil
}

func (r *PositionLimit) Apply(c *Context, targets schema.Targets) (schema.Targets, error) {
	equity := c.Portfolio.Equity(c.Market.LastPrice)
	limit := equity.Mul(r.maxPosition)

	out := make(schema.Targets, len(targets))
	for instrument, qty := range targets {
		price, ok := c.Market.LastPrice(instrument)
		if !ok || price.IsZero() {
			out[instrument] = qty
			continue
		}
		notional := qty.Abs().Mul(price)
		if notional.LessThanOrEqual(limit) {
			out[instrument] = qty
			continue
		}
		capped := limit.Div(price)
		if qty.IsNegative() {
			capped = capped.Neg()
		}
		out[instrument] = capped
	}
	return out, nil
}
