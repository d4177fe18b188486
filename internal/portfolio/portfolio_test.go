package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"

	"main/internal/schema"
)

var aapl = schema.Stock("AAPL", "NASDAQ")

func acceptedBuy(qty string) schema.OrderAck {
	return schema.OrderAck{
		OrderID:  "o1",
		Strategy: "s1",
		Spec: schema.OrderSpec{
			Instrument: aapl,
			Side:       schema.OrderSideBuy,
			Kind:       schema.OrderKindMarket,
			Qty:        decimal.RequireFromString(qty),
		},
		Status: schema.AckStatusAccepted,
	}
}

func TestRecordAckMovesPositionAndCash(t *testing.T) {
	p := New("s1")
	p.SetCapital(decimal.NewFromInt(1000))

	mark := decimal.NewFromInt(100)
	p.RecordAck(acceptedBuy("4"), mark)

	if got := p.Position(aapl); !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("position: got %s want 4", got)
	}
	if got := p.Cash(); !got.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("cash: got %s want 600", got)
	}

	sell := acceptedBuy("4")
	sell.Spec.Side = schema.OrderSideSell
	p.RecordAck(sell, mark)

	if got := p.Position(aapl); !got.IsZero() {
		t.Fatalf("position after flat: got %s want 0", got)
	}
	if _, open := p.Positions()[aapl]; open {
		t.Fatal("flat position should be removed from the map")
	}
	if got := p.Cash(); !got.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("cash after round trip: got %s want 1000", got)
	}
}

func TestRecordAckRejectionIsBookkeepingOnly(t *testing.T) {
	p := New("s1")
	p.SetCapital(decimal.NewFromInt(1000))

	rejected := acceptedBuy("4")
	rejected.Status = schema.AckStatusRejected
	rejected.Reason = schema.AckReasonBrokerReject
	p.RecordAck(rejected, decimal.NewFromInt(100))

	if got := p.Position(aapl); !got.IsZero() {
		t.Fatalf("rejection moved the position: %s", got)
	}
	if got := p.Cash(); !got.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("rejection moved the cash: %s", got)
	}
	if n := len(p.Rejections()); n != 1 {
		t.Fatalf("rejection history: got %d want 1", n)
	}
	if n := len(p.Acks()); n != 0 {
		t.Fatalf("ack history: got %d want 0", n)
	}
}

func TestEquityValuesPositionsAtMark(t *testing.T) {
	p := New("s1")
	p.SetCapital(decimal.NewFromInt(1000))
	p.RecordAck(acceptedBuy("4"), decimal.NewFromInt(100))

	mark := func(schema.Instrument) (decimal.Decimal, bool) {
		return decimal.NewFromInt(110), true
	}
	// 600 cash + 4 * 110.
	if got := p.Equity(mark); !got.Equal(decimal.NewFromInt(1040)) {
		t.Fatalf("equity: got %s want 1040", got)
	}

	unmarked := func(schema.Instrument) (decimal.Decimal, bool) {
		return decimal.Decimal{}, false
	}
	if got := p.Equity(unmarked); !got.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("equity without mark: got %s want 600", got)
	}
}

func TestRecordAckWithoutMarkLeavesCash(t *testing.T) {
	p := New("s1")
	p.SetCapital(decimal.NewFromInt(1000))
	p.RecordAck(acceptedBuy("4"), decimal.Decimal{})

	if got := p.Position(aapl); !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("position: got %s want 4", got)
	}
	if got := p.Cash(); !got.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("cash without mark: got %s want 1000", got)
	}
}
