package schema

import (
	"github.com/shopspring/decimal"
)

// OrderSide describes order direction.
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "buy"
	case OrderSideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderKind describes order type.
type OrderKind uint16

const (
	OrderKindUnknown OrderKind = iota
	OrderKindMarket
	OrderKindLimit
	OrderKindStop
)

func (k OrderKind) String() string {
	switch k {
	case OrderKindMarket:
		return "market"
	case OrderKindLimit:
		return "limit"
	case OrderKindStop:
		return "stop"
	default:
		return "unknown"
	}
}

// TimeInForce describes order time-in-force.
type TimeInForce uint16

const (
	TimeInForceUnknown TimeInForce = iota
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceDay
)

// OrderSpec is a fully specified instruction produced by an execution stage,
// ready for broker submission. Qty is always positive; direction lives in
// Side. LimitPrice and StopPrice are zero when unset. Immutable once built.
type OrderSpec struct {
	Instrument  Instrument
	Side        OrderSide
	Kind        OrderKind
	Qty         decimal.Decimal
	LimitPrice  decimal.Decimal
	StopPrice   decimal.Decimal
	TimeInForce TimeInForce
}

// SignedQty folds the side back into a signed quantity.
func (o OrderSpec) SignedQty() decimal.Decimal {
	if o.Side == OrderSideSell {
		return o.Qty.Neg()
	}
	return o.Qty
}

// AckStatus describes the broker's answer to a submission.
type AckStatus uint16

const (
	AckStatusUnknown AckStatus = iota
	AckStatusAccepted
	AckStatusRejected
	AckStatusCanceled
)

// AckReason explains a non-accepted acknowledgment.
type AckReason uint16

const (
	AckReasonNone AckReason = iota
	AckReasonBrokerReject
	AckReasonDisconnected
	AckReasonInvalidQty
	AckReasonInsufficientFunds
)

func (r AckReason) String() string {
	switch r {
	case AckReasonNone:
		return "none"
	case AckReasonBrokerReject:
		return "broker reject"
	case AckReasonDisconnected:
		return "disconnected"
	case AckReasonInvalidQty:
		return "invalid qty"
	case AckReasonInsufficientFunds:
		return "insufficient funds"
	default:
		return "unknown"
	}
}

// OrderAck is the broker's acknowledgment for one submitted OrderSpec.
// Rejections travel through the same type; they are bookkeeping, never a
// pipeline-fatal error.
type OrderAck struct {
	OrderID  string
	Strategy string
	Spec     OrderSpec
	Status   AckStatus
	Reason   AckReason
}

// Accepted reports whether the order was taken by the broker.
func (a OrderAck) Accepted() bool { return a.Status == AckStatusAccepted }
