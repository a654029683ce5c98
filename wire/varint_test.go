package wire

import (
	"testing"

	"github.com/axmq/lwmqtt/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVarIntSizes(t *testing.T) {
	cases := []struct {
		v    uint32
		size int
	}{
		{0, 1}, {127, 1},
		{128, 2}, {16383, 2},
		{16384, 3}, {2097151, 3},
		{2097152, 4}, {268435455, 4},
	}
	for _, c := range cases {
		out, err := EncodeVarInt(nil, c.v)
		require.NoError(t, err)
		assert.Lenf(t, out, c.size, "value %d", c.v)
		assert.Equal(t, c.size, VarIntSize(c.v))
	}
}

func TestEncodeVarIntRejectsOverflow(t *testing.T) {
	_, err := EncodeVarInt(nil, 268435456)
	assert.ErrorIs(t, err, ErrInvalidPacketSize)
}

func TestVarIntRoundTrip(t *testing.T) {
	values := []uint32{0, 127, 128, 16383, 16384, 2097151, 2097152, 268435455}
	for _, v := range values {
		encoded, err := EncodeVarInt(nil, v)
		require.NoError(t, err)

		in := stream.NewBuffer(encoded)
		decoded, err := DecodeVarInt(in)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func TestDecodeVarIntRejectsFifthByte(t *testing.T) {
	in := stream.NewBuffer([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	_, err := DecodeVarInt(in)
	assert.ErrorIs(t, err, ErrInvalidPacketSize)
}

func TestDecodeVarIntBytesInsufficientData(t *testing.T) {
	_, _, err := DecodeVarIntBytes([]byte{0x80})
	assert.ErrorIs(t, err, stream.ErrInputStreamEmpty)
}
