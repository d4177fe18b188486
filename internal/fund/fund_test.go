package fund

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/broker"
	"main/internal/event"
	"main/internal/schema"
	"main/internal/strategy"
)

var aapl = schema.Stock("AAPL", "NASDAQ")

type noopAlpha struct{}

func (noopAlpha) Signals(*strategy.Context, *event.MarketEvent) (schema.Signals, error) {
	return nil, nil
}

func testStrategy(t *testing.T, name string) *strategy.Strategy {
	t.Helper()
	construction, err := strategy.NewEqualWeight()
	require.NoError(t, err)
	risk, err := strategy.NewPositionLimit(decimal.NewFromInt(1))
	require.NoError(t, err)
	s, err := strategy.New(strategy.Config{
		Name:         name,
		Universe:     strategy.NewStatic(aapl),
		Alpha:        noopAlpha{},
		Construction: construction,
		Risk:         risk,
		Execution:    strategy.NewImmediate(),
	})
	require.NoError(t, err)
	return s
}

func TestNewValidates(t *testing.T) {
	s := testStrategy(t, "a")

	_, err := New(decimal.Zero, EqualAllocation{}, s)
	assert.Error(t, err, "zero capital accepted")

	_, err = New(decimal.NewFromInt(1000), nil, s)
	assert.Error(t, err, "nil policy accepted")

	_, err = New(decimal.NewFromInt(1000), EqualAllocation{})
	assert.Error(t, err, "empty strategy list accepted")

	_, err = New(decimal.NewFromInt(1000), EqualAllocation{}, s, testStrategy(t, "a"))
	assert.Error(t, err, "duplicate name accepted")
}

func TestAllocateEqualSplit(t *testing.T) {
	f, err := New(decimal.NewFromInt(90000), EqualAllocation{},
		testStrategy(t, "a"), testStrategy(t, "b"), testStrategy(t, "c"))
	require.NoError(t, err)
	require.NoError(t, f.Allocate())

	for _, entry := range f.Entries() {
		assert.True(t, entry.Portfolio.Cash().Equal(decimal.NewFromInt(30000)),
			"strategy %s got %s, want 30000", entry.Strategy.Name(), entry.Portfolio.Cash())
	}
}

func TestAllocateWeightedSplit(t *testing.T) {
	policy, err := NewWeightedAllocation(map[string]decimal.Decimal{
		"a": decimal.NewFromInt(3),
		"b": decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	f, err := New(decimal.NewFromInt(100000), policy, testStrategy(t, "a"), testStrategy(t, "b"))
	require.NoError(t, err)
	require.NoError(t, f.Allocate())

	byName := map[string]decimal.Decimal{}
	for _, entry := range f.Entries() {
		byName[entry.Strategy.Name()] = entry.Portfolio.Cash()
	}
	assert.True(t, byName["a"].Equal(decimal.NewFromInt(75000)), "a got %s", byName["a"])
	assert.True(t, byName["b"].Equal(decimal.NewFromInt(25000)), "b got %s", byName["b"])
}

func TestWeightedAllocationValidates(t *testing.T) {
	_, err := NewWeightedAllocation(map[string]decimal.Decimal{"a": decimal.NewFromInt(-1)})
	assert.Error(t, err, "negative weight accepted")

	_, err = NewWeightedAllocation(map[string]decimal.Decimal{"a": decimal.Zero})
	assert.Error(t, err, "zero weight sum accepted")
}

type overAllocator struct{}

func (overAllocator) Allocate(names []string, total decimal.Decimal) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(names))
	for _, name := range names {
		out[name] = total
	}
	return out, nil
}

type strayAllocator struct{}

func (strayAllocator) Allocate([]string, decimal.Decimal) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{"ghost": decimal.NewFromInt(1)}, nil
}

func TestAllocateRejectsBadPolicies(t *testing.T) {
	f, err := New(decimal.NewFromInt(1000), overAllocator{}, testStrategy(t, "a"), testStrategy(t, "b"))
	require.NoError(t, err)
	assert.Error(t, f.Allocate(), "over-total allocation accepted")

	f, err = New(decimal.NewFromInt(1000), strayAllocator{}, testStrategy(t, "a"))
	require.NoError(t, err)
	assert.Error(t, f.Allocate(), "allocation for unknown strategy accepted")
}

func TestRouteBooksAcksWithStrategyIdentity(t *testing.T) {
	f, err := New(decimal.NewFromInt(1000), EqualAllocation{}, testStrategy(t, "a"))
	require.NoError(t, err)
	require.NoError(t, f.Allocate())

	br := broker.NewSimulated(nil)
	require.NoError(t, br.Connect())

	entry := f.Entries()[0]
	orders := []schema.OrderSpec{
		{Instrument: aapl, Side: schema.OrderSideBuy, Kind: schema.OrderKindMarket, Qty: decimal.NewFromInt(4)},
		{Instrument: aapl, Side: schema.OrderSideBuy, Kind: schema.OrderKindMarket, Qty: decimal.Zero},
	}
	mark := func(schema.Instrument) (decimal.Decimal, bool) {
		return decimal.NewFromInt(100), true
	}

	accepted, rejected, err := f.Route(br, entry, orders, mark)
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, rejected)

	assert.True(t, entry.Portfolio.Position(aapl).Equal(decimal.NewFromInt(4)))
	assert.True(t, entry.Portfolio.Cash().Equal(decimal.NewFromInt(600)),
		"cash %s", entry.Portfolio.Cash())

	acks := entry.Portfolio.Acks()
	require.Len(t, acks, 1)
	assert.Equal(t, "a", acks[0].Strategy)
	assert.NotEmpty(t, acks[0].OrderID)

	rejections := entry.Portfolio.Rejections()
	require.Len(t, rejections, 1)
	assert.Equal(t, schema.AckReasonInvalidQty, rejections[0].Reason)
}

func TestTotalEquitySumsEntries(t *testing.T) {
	f, err := New(decimal.NewFromInt(1000), EqualAllocation{}, testStrategy(t, "a"), testStrategy(t, "b"))
	require.NoError(t, err)
	require.NoError(t, f.Allocate())

	mark := func(schema.Instrument) (decimal.Decimal, bool) {
		return decimal.Decimal{}, false
	}
	assert.True(t, f.TotalEquity(mark).Equal(decimal.NewFromInt(1000)))
}
