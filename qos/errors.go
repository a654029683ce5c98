package qos

import "errors"

var (
	// ErrInvalidQoS is returned for a QoS byte outside 0-2 (excluding the
	// SUBACK failure sentinel 0x80, which callers check for separately).
	ErrInvalidQoS = errors.New("invalid QoS level")
	// ErrPacketIDsExhausted is returned when every value in 1..65535 is
	// already in use and Next cannot allocate a new packet ID.
	ErrPacketIDsExhausted = errors.New("no packet IDs available")
)
