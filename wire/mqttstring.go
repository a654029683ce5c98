package wire

import "github.com/axmq/lwmqtt/stream"

// MaxStringLength is the largest length an MQTT string's 16-bit prefix can
// encode (§3).
const MaxStringLength = 65535

// EncodeString appends the length-prefixed encoding of s to dst: a 2-byte
// big-endian length followed by the raw bytes.
func EncodeString(dst []byte, s []byte) ([]byte, error) {
	if len(s) > MaxStringLength {
		return dst, ErrInvalidParam
	}
	dst = append(dst, byte(len(s)>>8), byte(len(s)))
	dst = append(dst, s...)
	return dst, nil
}

// EncodedStringSize returns the on-wire size of s once length-prefixed.
func EncodedStringSize(s []byte) int {
	return 2 + len(s)
}

// DecodeStringInto reads a length-prefixed string from in into buf,
// returning the number of bytes of buf that now hold the decoded string.
// If the decoded length exceeds len(buf), it fails with
// ErrMqttStringTooSmall without partially consuming the payload bytes from
// in beyond the 2-byte length prefix already read - per §4.2 the caller's
// buffer capacity gates whether the decode can proceed at all.
func DecodeStringInto(in stream.Input, buf []byte) (n int, err error) {
	var lenBytes [2]byte
	if _, err := stream.ReadFull(in, lenBytes[:]); err != nil {
		return 0, err
	}
	length := int(lenBytes[0])<<8 | int(lenBytes[1])
	if length > len(buf) {
		return 0, ErrMqttStringTooSmall
	}
	if length == 0 {
		return 0, nil
	}
	if _, err := stream.ReadFull(in, buf[:length]); err != nil {
		return 0, err
	}
	return length, nil
}

// DecodeStringBytes reads a length-prefixed string from data[offset:],
// returning the decoded bytes (a sub-slice of data, not a copy) and the
// offset just past it. Used when parsing an already-buffered packet.
func DecodeStringBytes(data []byte, offset int) (s []byte, next int, err error) {
	if offset+2 > len(data) {
		return nil, 0, ErrInvalidPacketPayload
	}
	length := int(data[offset])<<8 | int(data[offset+1])
	offset += 2
	if offset+length > len(data) {
		return nil, 0, ErrInvalidPacketPayload
	}
	return data[offset : offset+length], offset + length, nil
}

// PutUint16 big-endian encodes v into the first 2 bytes of dst.
func PutUint16(dst []byte, v uint16) {
	dst[0] = byte(v >> 8)
	dst[1] = byte(v)
}

// Uint16 big-endian decodes the first 2 bytes of src.
func Uint16(src []byte) uint16 {
	return uint16(src[0])<<8 | uint16(src[1])
}
