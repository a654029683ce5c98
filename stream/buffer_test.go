package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferReadWriteRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	b := NewBuffer(buf)

	n, err := b.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, uint64(5), b.BytesWritten())

	b.ResetRead()
	out := make([]byte, 5)
	n, err = b.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(out))
}

func TestBufferWritePastCapacityFails(t *testing.T) {
	b := NewBuffer(make([]byte, 3))

	n, err := b.Write([]byte("abcd"))
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, ErrOutputStreamFull)
	assert.ErrorIs(t, b.LastError(), ErrOutputStreamFull)
}

func TestBufferReadPastEndFails(t *testing.T) {
	b := NewBuffer([]byte("ab"))

	out := make([]byte, 4)
	n, err := b.Read(out)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, ErrInputStreamEmpty)

	n, err = b.Read(out)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, ErrInputStreamEmpty)
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer(make([]byte, 4))
	_, _ = b.Write([]byte("ab"))
	b.Reset()

	assert.Equal(t, uint64(0), b.BytesWritten())
	assert.Nil(t, b.LastError())

	n, err := b.Write([]byte("cd"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBufferSizeIsFixedCapacity(t *testing.T) {
	b := NewBuffer(make([]byte, 16))
	assert.Equal(t, 16, b.Size())
}

func TestReadFullLoopsOverShortReads(t *testing.T) {
	b := NewBuffer([]byte("abcdef"))
	out := make([]byte, 6)
	n, err := ReadFull(b, out)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "abcdef", string(out))
}

func TestWriteFullReportsOutputStreamFull(t *testing.T) {
	b := NewBuffer(make([]byte, 2))
	_, err := WriteFull(b, []byte("abc"))
	assert.ErrorIs(t, err, ErrOutputStreamFull)
}
