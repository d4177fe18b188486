package broker

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"main/internal/schema"
)

var (
	ErrNotConnected = errors.New("broker not connected")
	ErrUnknownOrder = errors.New("order not found")
)

// OrderState tracks the lifecycle of a simulated order.
type OrderState uint16

const (
	OrderStateUnknown OrderState = iota
	OrderStateAccepted
	OrderStateCanceled
	OrderStateRejected
)

// RejectFn lets tests and paper setups inject rejections. Returning true
// rejects the submission with the given reason.
type RejectFn func(strategy string, spec schema.OrderSpec) (schema.AckReason, bool)

type simOrder struct {
	ack      schema.OrderAck
	strategy string
	state    OrderState
}

// Simulated acknowledges every valid order immediately with a fresh order
// id and tracks its lifecycle. It computes no fills and prices nothing;
// it exists so backtests have a broker-shaped collaborator.
type Simulated struct {
	mu        sync.Mutex
	connected bool
	orders    map[string]*simOrder
	reject    RejectFn
}

// NewSimulated builds a simulated broker. reject may be nil.
func NewSimulated(reject RejectFn) *Simulated {
	return &Simulated{
		orders: make(map[string]*simOrder),
		reject: reject,
	}
}

func (b *Simulated) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

func (b *Simulated) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

func (b *Simulated) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *Simulated) SubmitOrder(strategy string, spec schema.OrderSpec) (schema.OrderAck, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return schema.OrderAck{}, ErrNotConnected
	}

	ack := schema.OrderAck{
		Strategy: strategy,
		Spec:     spec,
		Status:   schema.AckStatusAccepted,
		Reason:   schema.AckReasonNone,
	}
	if !spec.Qty.IsPositive() {
		ack.Status = schema.AckStatusRejected
		ack.Reason = schema.AckReasonInvalidQty
		return ack, nil
	}
	if b.reject != nil {
		if reason, rejected := b.reject(strategy, spec); rejected {
			ack.Status = schema.AckStatusRejected
			ack.Reason = reason
			return ack, nil
		}
	}

	ack.OrderID = uuid.NewString()
	b.orders[ack.OrderID] = &simOrder{ack: ack, strategy: strategy, state: OrderStateAccepted}
	return ack, nil
}

func (b *Simulated) CancelOrder(strategy string, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return ErrNotConnected
	}
	order, ok := b.orders[orderID]
	if !ok || order.strategy != strategy {
		return ErrUnknownOrder
	}
	order.state = OrderStateCanceled
	return nil
}

// OrderStateOf reports the tracked state of an order id.
func (b *Simulated) OrderStateOf(orderID string) OrderState {
	b.mu.Lock()
	defer b.mu.Unlock()
	order, ok := b.orders[orderID]
	if !ok {
		return OrderStateUnknown
	}
	return order.state
}
