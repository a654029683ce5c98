package stream

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeSockets(t *testing.T) (*Socket, *Socket) {
	t.Helper()
	a, b := net.Pipe()
	return NewSocket(a), NewSocket(b)
}

func TestSocketWriteReadRoundTrip(t *testing.T) {
	client, server := newPipeSockets(t)
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		out := make([]byte, 5)
		n, err := server.conn.Read(out)
		assert.NoError(t, err)
		assert.Equal(t, "hello", string(out[:n]))
	}()

	n, err := client.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	<-done
}

func TestSocketReadPendingOnNoData(t *testing.T) {
	client, server := newPipeSockets(t)
	defer client.Close()
	defer server.Close()

	buf := make([]byte, 4)
	_, err := client.Read(buf)
	assert.ErrorIs(t, err, ErrSocketPending)
}

func TestSocketCloseIsIdempotentAndRejectsFurtherIO(t *testing.T) {
	client, server := newPipeSockets(t)
	defer server.Close()

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestSocketSizeIsUnbounded(t *testing.T) {
	client, server := newPipeSockets(t)
	defer client.Close()
	defer server.Close()

	assert.Equal(t, UnboundedSize, client.Size())
}

func TestSocketPollReadableReturnsWhenDataArrives(t *testing.T) {
	client, server := newPipeSockets(t)
	defer client.Close()
	defer server.Close()

	go func() {
		time.Sleep(5 * time.Millisecond)
		_, _ = server.conn.Write([]byte("x"))
	}()

	readable, err := client.PollReadable(200 * time.Millisecond)
	require.NoError(t, err)
	assert.True(t, readable)
}
