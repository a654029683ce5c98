package wire

import (
	"errors"

	"github.com/axmq/lwmqtt/stream"
)

// DecodeState is one step of the resumable whole-packet decoder (§4.2).
type DecodeState int

const (
	AwaitType DecodeState = iota
	AwaitLength
	AwaitPayload
	Complete
)

// Decoder frames one MQTT control packet off an input stream without
// interpreting it: it reads the fixed header and variable-length remaining
// length, then copies exactly RemainingLength payload bytes through to a
// caller-supplied output stream verbatim. This separates framing from
// interpretation (§4.2 "Whole-packet decode") so the broker can frame a
// packet into scratch memory before deciding what it is.
//
// A Decoder is resumable: Step consumes whatever is currently available on
// the input stream and returns ErrInProgress (not a failure) when the
// stream runs dry mid-packet. The caller retains the Decoder and calls Step
// again on the next task step.
type Decoder struct {
	state   DecodeState
	header  FixedHeader
	typeSet bool

	viMultiplier uint32
	viValue      uint32
	viBytesRead  int

	payloadRemaining uint32
}

// NewDecoder returns a decoder positioned at AwaitType.
func NewDecoder() *Decoder {
	return &Decoder{state: AwaitType}
}

// isPending reports whether err means "no data right now, try again later"
// rather than a real failure - true for a buffer-backed stream running dry
// (ErrInputStreamEmpty) and for a non-blocking socket that would have
// blocked (ErrSocketPending), so the same Decoder drives both bindings.
func isPending(err error) bool {
	return errors.Is(err, stream.ErrInputStreamEmpty) || errors.Is(err, stream.ErrSocketPending)
}

// State reports the decoder's current state.
func (d *Decoder) State() DecodeState { return d.state }

// Header returns the fixed header decoded so far. Only Type is valid before
// AwaitPayload; RemainingLength is only valid once the header has left
// AwaitLength.
func (d *Decoder) Header() FixedHeader { return d.header }

// Reset returns the decoder to AwaitType, ready to frame the next packet.
// Must be called after a Step returns Complete (or a terminal error) before
// framing another packet.
func (d *Decoder) Reset() {
	d.state = AwaitType
	d.header = FixedHeader{}
	d.typeSet = false
	d.viMultiplier = 0
	d.viValue = 0
	d.viBytesRead = 0
	d.payloadRemaining = 0
}

// Step advances the decoder using whatever bytes are currently available on
// in, copying any payload bytes to out. It returns the state reached; when
// state is Complete the fixed header (via Header) describes the framed
// packet and out holds exactly RemainingLength bytes of variable
// header + payload. A return of ErrInProgress means in had no more bytes
// right now - not an error condition, just "call Step again later".
func (d *Decoder) Step(in stream.Input, out stream.Output) (DecodeState, error) {
	for {
		switch d.state {
		case Complete:
			return Complete, nil

		case AwaitType:
			var b [1]byte
			n, err := in.Read(b[:])
			if n == 0 {
				if err != nil && isPending(err) {
					return AwaitType, ErrInProgress
				}
				if err != nil {
					return AwaitType, err
				}
				return AwaitType, ErrInProgress
			}
			t := Type(b[0] >> 4)
			if !t.IsValid() {
				return AwaitType, ErrInvalidPacketType
			}
			flags := b[0] & 0x0F
			dup, qos, retain, ferr := decodeFlags(t, flags)
			if ferr != nil {
				return AwaitType, ferr
			}
			d.header = FixedHeader{Type: t, DUP: dup, QoS: qos, Retain: retain}
			d.typeSet = true
			d.viMultiplier = 1
			d.viValue = 0
			d.viBytesRead = 0
			d.state = AwaitLength

		case AwaitLength:
			var b [1]byte
			n, err := in.Read(b[:])
			if n == 0 {
				if err != nil && isPending(err) {
					return AwaitLength, ErrInProgress
				}
				if err != nil {
					return AwaitLength, err
				}
				return AwaitLength, ErrInProgress
			}
			d.viBytesRead++
			d.viValue += uint32(b[0]&0x7F) * d.viMultiplier
			if b[0]&0x80 == 0 {
				d.header.RemainingLength = d.viValue
				d.payloadRemaining = d.viValue
				if d.payloadRemaining == 0 {
					d.state = Complete
					return Complete, nil
				}
				d.state = AwaitPayload
				continue
			}
			if d.viBytesRead >= 4 {
				return AwaitLength, ErrInvalidPacketSize
			}
			d.viMultiplier *= 128

		case AwaitPayload:
			var chunk [512]byte
			for d.payloadRemaining > 0 {
				want := len(chunk)
				if uint32(want) > d.payloadRemaining {
					want = int(d.payloadRemaining)
				}
				n, err := in.Read(chunk[:want])
				if n > 0 {
					if _, werr := stream.WriteFull(out, chunk[:n]); werr != nil {
						return AwaitPayload, werr
					}
					d.payloadRemaining -= uint32(n)
				}
				if err != nil {
					if isPending(err) {
						return AwaitPayload, ErrInProgress
					}
					return AwaitPayload, err
				}
				if n == 0 {
					return AwaitPayload, ErrInProgress
				}
			}
			d.state = Complete
			return Complete, nil
		}
	}
}
