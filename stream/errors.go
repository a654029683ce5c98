package stream

import "errors"

var (
	// ErrInputStreamEmpty indicates a read attempted past the available bytes.
	ErrInputStreamEmpty = errors.New("input stream empty")

	// ErrOutputStreamFull indicates a write attempted past the stream's capacity.
	ErrOutputStreamFull = errors.New("output stream full")

	// ErrSocketPending indicates the underlying socket would block; callers
	// should retry on a later poll rather than treat this as a failure.
	ErrSocketPending = errors.New("socket operation pending")

	// ErrSocketFailed indicates a non-transient socket error, terminal to
	// the connection.
	ErrSocketFailed = errors.New("socket failed")

	// ErrStreamClosed indicates an operation on a stream that has already
	// been closed.
	ErrStreamClosed = errors.New("stream closed")
)
