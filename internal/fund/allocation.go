package fund

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// Policy decides how the fund's total capital is split across strategies.
// Invoked once at fund start; a time-varying policy may be re-run by the
// host, which is a policy decision, not an engine one.
type Policy interface {
	Allocate(names []string, total decimal.Decimal) (map[string]decimal.Decimal, error)
}

// EqualAllocation gives every strategy the same share.
type EqualAllocation struct{}

func (EqualAllocation) Allocate(names []string, total decimal.Decimal) (map[string]decimal.Decimal, error) {
	if len(names) == 0 {
		return nil, errors.New("no strategies to allocate")
	}
	share := total.Div(decimal.NewFromInt(int64(len(names)))).Truncate(8)
	out := make(map[string]decimal.Decimal, len(names))
	for _, name := range names {
		out[name] = share
	}
	return out, nil
}

// WeightedAllocation splits capital by fixed per-strategy weights. Weights
// are normalized, so they need not sum to one.
type WeightedAllocation struct {
	weights map[string]decimal.Decimal
}

// NewWeightedAllocation builds a weighted policy. Weights must be
// non-negative with a positive sum.
func NewWeightedAllocation(weights map[string]decimal.Decimal) (*WeightedAllocation, error) {
	sum := decimal.Zero
	for name, w := range weights {
		if w.IsNegative() {
			return nil, errors.Errorf("negative weight for %s: %s", name, w)
		}
		sum = sum.Add(w)
	}
	if !sum.IsPositive() {
		return nil, errors.New("allocation weights sum to zero")
	}
	return &WeightedAllocation{weights: weights}, nil
}

func (p *WeightedAllocation) Allocate(names []string, total decimal.Decimal) (map[string]decimal.Decimal, error) {
	sum := decimal.Zero
	for _, name := range names {
		w, ok := p.weights[name]
		if !ok {
			return nil, errors.Errorf("no weight for strategy: %s", name)
		}
		sum = sum.Add(w)
	}
	if !sum.IsPositive() {
		return nil, errors.New("allocation weights sum to zero")
	}

	out := make(map[string]decimal.Decimal, len(names))
	for _, name := range names {
		out[name] = total.Mul(p.weights[name]).Div(sum).Truncate(8)
	}
	return out, nil
}
