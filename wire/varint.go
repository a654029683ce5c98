package wire

import "github.com/axmq/lwmqtt/stream"

// MaxRemainingLength is the largest value a 4-byte variable-length integer
// can encode (§3, §8): 0x7F + 0x7F<<7 + 0x7F<<14 + 0x7F<<21.
const MaxRemainingLength = 268435455

// EncodeVarInt appends the MQTT variable-length integer encoding of v to
// dst and returns the extended slice. v must be <= MaxRemainingLength.
// Adapted from the teacher's encoding/varint.go LSB-first, 7-bits-per-byte
// scheme.
func EncodeVarInt(dst []byte, v uint32) ([]byte, error) {
	if v > MaxRemainingLength {
		return dst, ErrInvalidPacketSize
	}
	for {
		b := byte(v % 128)
		v /= 128
		if v > 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			break
		}
	}
	return dst, nil
}

// VarIntSize returns how many bytes EncodeVarInt would emit for v.
func VarIntSize(v uint32) int {
	switch {
	case v < 128:
		return 1
	case v < 16384:
		return 2
	case v < 2097152:
		return 3
	default:
		return 4
	}
}

// DecodeVarInt reads an MQTT variable-length integer from in. It rejects a
// 5th continuation byte as malformed, per §4.2.
func DecodeVarInt(in stream.Input) (uint32, error) {
	var value uint32
	var multiplier uint32 = 1
	var b [1]byte

	for i := 0; i < 4; i++ {
		if _, err := stream.ReadFull(in, b[:]); err != nil {
			return 0, err
		}
		value += uint32(b[0]&0x7F) * multiplier
		if b[0]&0x80 == 0 {
			return value, nil
		}
		multiplier *= 128
	}
	return 0, ErrInvalidPacketSize
}

// DecodeVarIntBytes decodes an MQTT variable-length integer starting at
// data[0], returning the value and the number of bytes consumed. Used by
// the resumable whole-packet decoder once enough bytes are buffered.
func DecodeVarIntBytes(data []byte) (value uint32, n int, err error) {
	var multiplier uint32 = 1
	for i := 0; i < 4 && i < len(data); i++ {
		b := data[i]
		value += uint32(b&0x7F) * multiplier
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
		multiplier *= 128
	}
	if len(data) >= 4 {
		return 0, 0, ErrInvalidPacketSize
	}
	return 0, 0, stream.ErrInputStreamEmpty
}
