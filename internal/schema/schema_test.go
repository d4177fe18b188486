package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSortInstruments(t *testing.T) {
	list := []Instrument{
		Crypto("ETHUSDT", "BINANCE"),
		Stock("MSFT", "NASDAQ"),
		Stock("AAPL", "NASDAQ"),
		Stock("AAPL", "NYSE"),
		Crypto("BTCUSDT", "BINANCE"),
	}
	SortInstruments(list)

	want := []Instrument{
		Stock("AAPL", "NASDAQ"),
		Stock("AAPL", "NYSE"),
		Crypto("BTCUSDT", "BINANCE"),
		Crypto("ETHUSDT", "BINANCE"),
		Stock("MSFT", "NASDAQ"),
	}
	for i := range want {
		if list[i] != want[i] {
			t.Fatalf("position %d: got %s want %s", i, list[i], want[i])
		}
	}
}

func TestSignalValidate(t *testing.T) {
	base := Signal{
		Instrument: Stock("AAPL", "NASDAQ"),
		Time:       time.Unix(0, 0).UTC(),
		Kind:       SignalKindTechnical,
		Source:     "test",
	}

	testCases := []struct {
		desc       string
		strength   string
		confidence string
		wantErr    error
	}{
		{"full long", "1", "1", nil},
		{"full short", "-1", "1", nil},
		{"neutral", "0", "0", nil},
		{"fractional", "0.5", "0.8", nil},
		{"strength over", "1.01", "1", ErrStrengthOutOfRange},
		{"strength under", "-1.01", "1", ErrStrengthOutOfRange},
		{"confidence over", "1", "1.01", ErrConfidenceOutOfRange},
		{"confidence negative", "1", "-0.1", ErrConfidenceOutOfRange},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s := base
			s.Strength = decimal.RequireFromString(tc.strength)
			s.Confidence = decimal.RequireFromString(tc.confidence)
			if err := s.Validate(); !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestSignalsInstrumentsDeterministic(t *testing.T) {
	signals := Signals{
		Stock("MSFT", "NASDAQ"): {},
		Stock("AAPL", "NASDAQ"): {},
		Stock("GOOG", "NASDAQ"): {},
	}
	first := signals.Instruments()
	for i := 0; i < 20; i++ {
		again := signals.Instruments()
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("iteration order changed between calls: %v vs %v", first, again)
			}
		}
	}
	if first[0].Symbol != "AAPL" || first[1].Symbol != "GOOG" || first[2].Symbol != "MSFT" {
		t.Fatalf("unexpected order: %v", first)
	}
}

func TestOrderSpecSignedQty(t *testing.T) {
	qty := decimal.RequireFromString("2.5")
	buy := OrderSpec{Side: OrderSideBuy, Qty: qty}
	sell := OrderSpec{Side: OrderSideSell, Qty: qty}

	if !buy.SignedQty().Equal(qty) {
		t.Fatalf("buy signed qty: got %s want %s", buy.SignedQty(), qty)
	}
	if !sell.SignedQty().Equal(qty.Neg()) {
		t.Fatalf("sell signed qty: got %s want %s", sell.SignedQty(), qty.Neg())
	}
}

func TestParseAssetClass(t *testing.T) {
	testCases := []struct {
		input string
		want  AssetClass
	}{
		{"stock", AssetClassStock},
		{"crypto", AssetClassCrypto},
		{"future", AssetClassFuture},
		{"forex", AssetClassForex},
		{"bond", AssetClassUnknown},
		{"", AssetClassUnknown},
	}
	for _, tc := range testCases {
		if got := ParseAssetClass(tc.input); got != tc.want {
			t.Fatalf("%q: got %s want %s", tc.input, got, tc.want)
		}
	}
}
