package fund

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/broker"
	"main/internal/portfolio"
	"main/internal/schema"
	"main/internal/strategy"
)

// Entry pairs a strategy with its slice of the fund's capital.
type Entry struct {
	Strategy  *strategy.Strategy
	Portfolio *portfolio.Portfolio
}

// Fund owns one or more named strategies and one pool of capital, splits
// the capital via a pluggable allocation policy, and routes each strategy's
// orders to the shared broker with the strategy's identity attached.
type Fund struct {
	capital decimal.Decimal
	policy  Policy
	entries []*Entry
	byName  map[string]*Entry
}

// New validates and builds a fund. Strategy names must be unique; a bad
// capital amount or duplicate name is a configuration error.
func New(capital decimal.Decimal, policy Policy, strategies ...*strategy.Strategy) (*Fund, error) {
	if !capital.IsPositive() {
		return nil, errors.Errorf("fund capital must be positive, got %s", capital)
	}
	if policy == nil {
		return nil, errors.New("fund allocation policy is nil")
	}
	if len(strategies) == 0 {
		return nil, errors.New("fund has no strategies")
	}

	f := &Fund{
		capital: capital,
		policy:  policy,
		byName:  make(map[string]*Entry, len(strategies)),
	}
	for _, s := range strategies {
		if _, dup := f.byName[s.Name()]; dup {
			return nil, errors.Errorf("duplicate strategy name: %s", s.Name())
		}
		entry := &Entry{Strategy: s, Portfolio: portfolio.New(s.Name())}
		f.entries = append(f.entries, entry)
		f.byName[s.Name()] = entry
	}
	return f, nil
}

func (f *Fund) Capital() decimal.Decimal { return f.capital }

// Entries returns the strategies in registration order.
func (f *Fund) Entries() []*Entry { return f.entries }

// Allocate runs the policy and assigns each strategy its capital. Negative
// or over-total allocations fail here, before the engine starts; this is a
// configuration error, never retried.
func (f *Fund) Allocate() error {
	names := make([]string, 0, len(f.entries))
	for _, entry := range f.entries {
		names = append(names, entry.Strategy.Name())
	}

	allocations, err := f.policy.Allocate(names, f.capital)
	if err != nil {
		return errors.Wrap(err, "allocation policy")
	}

	total := decimal.Zero
	for name, amount := range allocations {
		if _, ok := f.byName[name]; !ok {
			return errors.Errorf("allocation for unknown strategy: %s", name)
		}
		if amount.IsNegative() {
			return errors.Errorf("negative allocation for %s: %s", name, amount)
		}
		total = total.Add(amount)
	}
	if total.GreaterThan(f.capital) {
		return errors.Errorf("allocation %s exceeds fund capital %s", total, f.capital)
	}

	for _, entry := range f.entries {
		entry.Portfolio.SetCapital(allocations[entry.Strategy.Name()])
	}
	logs.Infof("fund allocated: capital=%s strategies=%d", f.capital, len(f.entries))
	return nil
}

// Route submits a strategy's orders to the broker and books every
// acknowledgment into the issuing strategy's portfolio. Rejections are
// recorded, not raised; only transport failures return an error.
func (f *Fund) Route(br broker.Broker, entry *Entry, orders []schema.OrderSpec, mark portfolio.MarkFn) (accepted, rejected int, err error) {
	name := entry.Strategy.Name()
	for _, spec := range orders {
		ack, err := br.SubmitOrder(name, spec)
		if err != nil {
			return accepted, rejected, errors.Wrapf(err, "submit order for %s", name)
		}
		price, _ := mark(spec.Instrument)
		entry.Portfolio.RecordAck(ack, price)
		if ack.Accepted() {
			accepted++
		} else {
			rejected++
			logs.Warnf("order rejected: strategy=%s instrument=%s reason=%s", name, spec.Instrument, ack.Reason)
		}
	}
	return accepted, rejected, nil
}

// TotalEquity values the whole fund at mark.
func (f *Fund) TotalEquity(mark portfolio.MarkFn) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range f.entries {
		total = total.Add(entry.Portfolio.Equity(mark))
	}
	return total
}
