package portfolio

import (
	"sync"

	"github.com/shopspring/decimal"

	"main/internal/schema"
)

// View is the read-only capability handle stages receive through their
// context. Stages never write portfolio state; mutation happens only on the
// fund routing layer after broker acknowledgment.
type View interface {
	Strategy() string
	Cash() decimal.Decimal
	Position(instrument schema.Instrument) decimal.Decimal
	Positions() map[schema.Instrument]decimal.Decimal
	Equity(mark MarkFn) decimal.Decimal
}

// MarkFn resolves the current mark price for an instrument.
type MarkFn func(instrument schema.Instrument) (decimal.Decimal, bool)

// Portfolio is one strategy's slice of the fund: allocated cash, open
// positions, and the acknowledgment history of its submitted orders.
type Portfolio struct {
	mu         sync.RWMutex
	strategy   string
	cash       decimal.Decimal
	positions  map[schema.Instrument]decimal.Decimal
	acks       []schema.OrderAck
	rejections []schema.OrderAck
}

// New allocates an empty portfolio for the named strategy.
func New(strategy string) *Portfolio {
	return &Portfolio{
		strategy:  strategy,
		positions: make(map[schema.Instrument]decimal.Decimal),
	}
}

func (p *Portfolio) Strategy() string { return p.strategy }

// SetCapital assigns the strategy's allocated capital. Called once by the
// fund at allocation time, and again only under a time-varying policy.
func (p *Portfolio) SetCapital(capital decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cash = capital
}

func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cash
}

func (p *Portfolio) Position(instrument schema.Instrument) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.positions[instrument]
}

// Positions returns a copy of the open positions.
func (p *Portfolio) Positions() map[schema.Instrument]decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[schema.Instrument]decimal.Decimal, len(p.positions))
	for instrument, qty := range p.positions {
		out[instrument] = qty
	}
	return out
}

// Equity values the portfolio as cash plus positions at mark. Positions
// without a mark price contribute nothing.
func (p *Portfolio) Equity(mark MarkFn) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	equity := p.cash
	for instrument, qty := range p.positions {
		if qty.IsZero() {
			continue
		}
		if price, ok := mark(instrument); ok {
			equity = equity.Add(qty.Mul(price))
		}
	}
	return equity
}

// RecordAck books a broker acknowledgment. Accepted orders move the
// position by the order's signed quantity and reserve cash at the given
// mark price; this is attribution bookkeeping, not fill simulation.
// Rejections are kept as typed history, never raised.
func (p *Portfolio) RecordAck(ack schema.OrderAck, mark decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !ack.Accepted() {
		p.rejections = append(p.rejections, ack)
		return
	}
	p.acks = append(p.acks, ack)
	signed := ack.Spec.SignedQty()
	next := p.positions[ack.Spec.Instrument].Add(signed)
	if next.IsZero() {
		delete(p.positions, ack.Spec.Instrument)
	} else {
		p.positions[ack.Spec.Instrument] = next
	}
	if !mark.IsZero() {
		p.cash = p.cash.Sub(signed.Mul(mark))
	}
}

// Acks returns a copy of the accepted acknowledgment history.
func (p *Portfolio) Acks() []schema.OrderAck {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]schema.OrderAck, len(p.acks))
	copy(out, p.acks)
	return out
}

// Rejections returns a copy of the rejection history.
func (p *Portfolio) Rejections() []schema.OrderAck {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]schema.OrderAck, len(p.rejections))
	copy(out, p.rejections)
	return out
}
