package client

import "errors"

// Sentinel errors for the client endpoint, following §7's taxonomy. Each
// names exactly one invalid-operation or transport failure; Task and the
// public operations return these directly rather than through a
// thread-local "last error" (Go has no such thing - see DESIGN.md).
var (
	// ErrInvalidState is returned when a public operation is issued from a
	// State that does not permit it (e.g. publish outside MqttConnected).
	ErrInvalidState = errors.New("client: invalid state for operation")
	// ErrInvalidParam mirrors §7's InvalidParam: a null/empty/out-of-range
	// argument to a setter or operation.
	ErrInvalidParam = errors.New("client: invalid parameter")
)
