package stream

import (
	"errors"
	"net"
	"syscall"
	"time"
)

// Socket is a stream bound to a live TCP connection. A read that cannot
// proceed returns ErrSocketPending at once; a write waits at most 50 ms
// before returning ErrSocketPending, so neither stalls the caller's task
// step for long, matching
// §4.1's requirement that the codec only ever see a stream, never a raw
// socket, and that "would block" surface distinctly from "broken".
//
// Adapted from the teacher's network.Connection (activity tracking, byte
// counters, deadline-based non-blocking I/O), narrowed to the one-reader/
// one-writer shape an MQTT endpoint needs. One Socket implements both
// Input and Output over a single net.Conn; the last-error field is shared
// by reads and writes.
type Socket struct {
	conn net.Conn

	read    uint64
	written uint64
	lastErr error
	closed  bool
}

// NewSocket wraps conn. The returned Socket implements both Input and
// Output; callers needing to hand only one capability to the codec can do
// so directly since Socket satisfies both interfaces.
func NewSocket(conn net.Conn) *Socket {
	return &Socket{conn: conn}
}

// Conn returns the underlying net.Conn, for operations the stream
// abstraction does not cover (e.g. closing, checking remote address).
func (s *Socket) Conn() net.Conn { return s.conn }

func (s *Socket) Read(p []byte) (int, error) {
	if s.closed {
		s.lastErr = ErrStreamClosed
		return 0, ErrStreamClosed
	}
	_ = s.conn.SetReadDeadline(time.Now())
	n, err := s.conn.Read(p)
	if n > 0 {
		s.read += uint64(n)
	}
	if err != nil {
		if isTimeout(err) {
			s.lastErr = ErrSocketPending
			return n, ErrSocketPending
		}
		s.lastErr = errFromNet(err)
		return n, s.lastErr
	}
	return n, nil
}

func (s *Socket) Write(p []byte) (int, error) {
	if s.closed {
		s.lastErr = ErrStreamClosed
		return 0, ErrStreamClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(50 * time.Millisecond))
	n, err := s.conn.Write(p)
	if n > 0 {
		s.written += uint64(n)
	}
	if err != nil {
		if isTimeout(err) {
			s.lastErr = ErrSocketPending
			return n, ErrSocketPending
		}
		s.lastErr = errFromNet(err)
		return n, s.lastErr
	}
	return n, nil
}

// PollReadable waits up to timeout for the socket to report readable bytes,
// using the platform poller (epoll/kqueue/fallback) over the connection's
// raw file descriptor.
func (s *Socket) PollReadable(timeout time.Duration) (bool, error) {
	if s.closed {
		return false, ErrStreamClosed
	}
	fd, err := fdOf(s.conn)
	if err != nil {
		// No raw fd available (e.g. an in-memory net.Pipe conn in tests):
		// fall back to a short blocking read-deadline probe.
		return s.pollViaDeadline(timeout)
	}
	return pollReadableFD(fd, timeout)
}

func (s *Socket) pollViaDeadline(timeout time.Duration) (bool, error) {
	_ = s.conn.SetReadDeadline(time.Now().Add(timeout))
	var probe [1]byte
	n, err := s.conn.Read(probe[:0])
	_ = n
	if err != nil && !isTimeout(err) {
		return false, errFromNet(err)
	}
	return true, nil
}

func (s *Socket) Size() int { return UnboundedSize }

func (s *Socket) BytesRead() uint64    { return s.read }
func (s *Socket) BytesWritten() uint64 { return s.written }

func (s *Socket) LastError() error { return s.lastErr }

// Reset clears counters and the last error; it does not reopen the socket.
func (s *Socket) Reset() {
	s.read = 0
	s.written = 0
	s.lastErr = nil
}

// Close closes the underlying connection.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// errFromNet classifies a net.Conn error as ErrSocketFailed unless it is
// already one of the stream package's sentinels.
func errFromNet(err error) error {
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
		return ErrSocketPending
	}
	return ErrSocketFailed
}
