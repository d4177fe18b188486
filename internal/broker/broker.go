package broker

import (
	"main/internal/schema"
)

// Broker executes order specs on behalf of named strategies. Concrete
// implementations wrap an exchange or simulate one; the engine only relies
// on this contract. A rejection is part of the returned acknowledgment, not
// an error: the error return is for transport-level failures only.
type Broker interface {
	SubmitOrder(strategy string, spec schema.OrderSpec) (schema.OrderAck, error)
	CancelOrder(strategy string, orderID string) error
	Connect() error
	Disconnect() error
	IsConnected() bool
}
