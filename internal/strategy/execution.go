package strategy

import (
	"main/internal/schema"
)

// Immediate turns post-risk targets into market orders for the delta
// between the current position and the target, walking instruments in
// deterministic order. Converged instruments produce no order.
type Immediate struct{}

func NewImmediate() *Immediate { return &Immediate{} }

func (e *Immediate) Orders(c *Context, targets schema.Targets) ([]schema.OrderSpec, error) {
	var orders []schema.OrderSpec
	for _, instrument := range targets.Instruments() {
		delta := targets[instrument].Sub(c.Portfolio.Position(instrument))
		if delta.IsZero() {
			continue
		}
		side := schema.OrderSideBuy
		if delta.IsNegative() {
			side = schema.OrderSideSell
		}
		orders = append(orders, schema.OrderSpec{
			Instrument:  instrument,
			Side:        side,
			Kind:        schema.OrderKindMarket,
			Qty:         delta.Abs(),
			TimeInForce: schema.TimeInForceDay,
		})
	}
	return orders, nil
}
