package strategy

import (
	"testing"

	"github.com/shopspring/decimal"

	"main/internal/portfolio"
	"main/internal/schema"
)

func TestImmediateOrdersDelta(t *testing.T) {
	e := NewImmediate()
	c := testContext("100000", map[schema.Instrument]string{aapl: "100"})
	p := c.Portfolio.(*portfolio.Portfolio)
	p.RecordAck(schema.OrderAck{
		Strategy: "test",
		Spec: schema.OrderSpec{
			Instrument: aapl,
			Side:       schema.OrderSideBuy,
			Kind:       schema.OrderKindMarket,
			Qty:        decimal.NewFromInt(100),
		},
		Status: schema.AckStatusAccepted,
	}, decimal.NewFromInt(100))

	testCases := []struct {
		desc     string
		target   string
		wantSide schema.OrderSide
		wantQty  string
	}{
		{"increase", "150", schema.OrderSideBuy, "50"},
		{"decrease", "40", schema.OrderSideSell, "60"},
		{"flatten", "0", schema.OrderSideSell, "100"},
		{"flip short", "-25", schema.OrderSideSell, "125"},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			targets := schema.Targets{aapl: decimal.RequireFromString(tc.target)}
			orders, err := e.Orders(c, targets)
			if err != nil {
				t.Fatalf("orders failed: %v", err)
			}
			if len(orders) != 1 {
				t.Fatalf("got %d orders, want 1", len(orders))
			}
			o := orders[0]
			if o.Side != tc.wantSide {
				t.Fatalf("side: got %s want %s", o.Side, tc.wantSide)
			}
			if !o.Qty.Equal(decimal.RequireFromString(tc.wantQty)) {
				t.Fatalf("qty: got %s want %s", o.Qty, tc.wantQty)
			}
			if o.Kind != schema.OrderKindMarket {
				t.Fatalf("kind: got %s want market", o.Kind)
			}
		})
	}
}

func TestImmediateSkipsConvergedTargets(t *testing.T) {
	e := NewImmediate()
	c := testContext("100000", map[schema.Instrument]string{aapl: "100"})
	p := c.Portfolio.(*portfolio.Portfolio)
	p.RecordAck(schema.OrderAck{
		Strategy: "test",
		Spec: schema.OrderSpec{
			Instrument: aapl,
			Side:       schema.OrderSideBuy,
			Kind:       schema.OrderKindMarket,
			Qty:        decimal.NewFromInt(100),
		},
		Status: schema.AckStatusAccepted,
	}, decimal.NewFromInt(100))

	orders, err := e.Orders(c, schema.Targets{aapl: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("orders failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("converged target produced %d orders", len(orders))
	}
}

func TestImmediateWalksInstrumentsDeterministically(t *testing.T) {
	e := NewImmediate()
	c := testContext("100000", nil)

	targets := schema.Targets{
		schema.Stock("MSFT", "NASDAQ"): decimal.NewFromInt(1),
		schema.Stock("AAPL", "NASDAQ"): decimal.NewFromInt(1),
		schema.Stock("GOOG", "NASDAQ"): decimal.NewFromInt(1),
	}
	first, err := e.Orders(c, targets)
	if err != nil {
		t.Fatalf("orders failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := e.Orders(c, targets)
		if err != nil {
			t.Fatalf("orders failed: %v", err)
		}
		for j := range first {
			if first[j].Instrument != again[j].Instrument {
				t.Fatalf("order sequence changed across runs")
			}
		}
	}
	if first[0].Instrument.Symbol != "AAPL" || first[2].Instrument.Symbol != "MSFT" {
		t.Fatalf("unexpected order walk: %v", first)
	}
}

func TestStaticUniverseReturnsSortedCopy(t *testing.T) {
	u := NewStatic(msft, aapl)
	first := u.Select(nil)
	if first[0] != aapl || first[1] != msft {
		t.Fatalf("universe not sorted: %v", first)
	}

	first[0] = schema.Stock("HACK", "X")
	again := u.Select(nil)
	if again[0] != aapl {
		t.Fatal("mutating the returned slice leaked into the universe")
	}
}
