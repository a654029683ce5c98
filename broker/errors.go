package broker

import "errors"

var (
	// ErrPoolExhausted is returned by Pool.Alloc when every slot is in use.
	ErrPoolExhausted = errors.New("pool exhausted")
	// ErrStaleHandle is returned when a Handle's generation no longer
	// matches the slot it names - the slot was released and possibly
	// reallocated since the handle was taken.
	ErrStaleHandle = errors.New("stale handle")

	// ErrNotRunning is returned by Task when the broker is not in the
	// Running state.
	ErrNotRunning = errors.New("broker not running")
	// ErrAlreadyRunning is returned by Start when the broker is already
	// Running.
	ErrAlreadyRunning = errors.New("broker already running")

	// ErrTopicTableFull is returned when every topic slot is in use and a
	// SUBSCRIBE names a topic with no existing slot.
	ErrTopicTableFull = errors.New("topic table full")
	// ErrSubscriptionTableFull is returned when every subscription slot is
	// in use.
	ErrSubscriptionTableFull = errors.New("subscription table full")
)
