package strategy

import (
	"testing"

	"github.com/shopspring/decimal"

	"main/internal/schema"
)

func TestNewEqualWeightValidatesReserve(t *testing.T) {
	testCases := []struct {
		desc    string
		reserve string
		wantErr bool
	}{
		{"zero", "0", false},
		{"five percent", "0.05", false},
		{"just under one", "0.99", false},
		{"one", "1", true},
		{"negative", "-0.1", true},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := NewEqualWeight(WithReserve(decimal.RequireFromString(tc.reserve)))
			if (err != nil) != tc.wantErr {
				t.Fatalf("reserve %s: err=%v wantErr=%v", tc.reserve, err, tc.wantErr)
			}
		})
	}
}

func TestEqualWeightSizesWithReserve(t *testing.T) {
	w, err := NewEqualWeight(WithReserve(decimal.RequireFromString("0.05")))
	if err != nil {
		t.Fatalf("build stage: %v", err)
	}
	c := testContext("100000", map[schema.Instrument]string{aapl: "100"})

	targets, err := w.Targets(c, schema.Signals{aapl: longSignal(aapl)})
	if err != nil {
		t.Fatalf("targets failed: %v", err)
	}
	// 100000 * 0.95 / 100 = 950 shares.
	if got := targets[aapl]; !got.Equal(decimal.NewFromInt(950)) {
		t.Fatalf("target qty: got %s want 950", got)
	}
}

func TestEqualWeightSplitsAcrossInstruments(t *testing.T) {
	w, err := NewEqualWeight()
	if err != nil {
		t.Fatalf("build stage: %v", err)
	}
	c := testContext("1000", map[schema.Instrument]string{aapl: "100", msft: "50"})

	signals := schema.Signals{aapl: longSignal(aapl), msft: longSignal(msft)}
	targets, err := w.Targets(c, signals)
	if err != nil {
		t.Fatalf("targets failed: %v", err)
	}
	// 500 per instrument.
	if got := targets[aapl]; !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("aapl qty: got %s want 5", got)
	}
	if got := targets[msft]; !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("msft qty: got %s want 10", got)
	}
}

func TestEqualWeightShortSignalTargetsNegative(t *testing.T) {
	w, err := NewEqualWeight()
	if err != nil {
		t.Fatalf("build stage: %v", err)
	}
	c := testContext("1000", map[schema.Instrument]string{aapl: "100"})

	short := longSignal(aapl)
	short.Strength = decimal.NewFromInt(-1)
	targets, err := w.Targets(c, schema.Signals{aapl: short})
	if err != nil {
		t.Fatalf("targets failed: %v", err)
	}
	if got := targets[aapl]; !got.Equal(decimal.NewFromInt(-10)) {
		t.Fatalf("short target: got %s want -10", got)
	}
}

func TestEqualWeightOnceIsIdempotent(t *testing.T) {
	w, err := NewEqualWeight(WithOnce())
	if err != nil {
		t.Fatalf("build stage: %v", err)
	}
	c := testContext("1000", map[schema.Instrument]string{aapl: "100"})
	signals := schema.Signals{aapl: longSignal(aapl)}

	first, err := w.Targets(c, signals)
	if err != nil {
		t.Fatalf("first targets failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first pass: got %d targets, want 1", len(first))
	}

	// Replaying the same signal yields nothing; downstream short-circuits
	// instead of re-sizing the position.
	for i := 0; i < 3; i++ {
		again, err := w.Targets(c, signals)
		if err != nil {
			t.Fatalf("replay %d failed: %v", i, err)
		}
		if len(again) != 0 {
			t.Fatalf("replay %d re-sized an initialized instrument: %v", i, again)
		}
	}
}

func TestEqualWeightSkipsUnpricedInstruments(t *testing.T) {
	w, err := NewEqualWeight()
	if err != nil {
		t.Fatalf("build stage: %v", err)
	}
	c := testContext("1000", map[schema.Instrument]string{aapl: "100"})

	unpriced := schema.Stock("IPO", "NYSE")
	signals := schema.Signals{aapl: longSignal(aapl), unpriced: longSignal(unpriced)}
	targets, err := w.Targets(c, signals)
	if err != nil {
		t.Fatalf("targets failed: %v", err)
	}
	if _, ok := targets[unpriced]; ok {
		t.Fatal("unpriced instrument was sized")
	}
	if _, ok := targets[aapl]; !ok {
		t.Fatal("priced instrument missing from targets")
	}
}
