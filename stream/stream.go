// Package stream provides the byte-oriented input/output abstraction the
// MQTT codec is layered on. The codec never talks to a socket directly: it
// reads from an Input and writes to an Output, so it can be driven equally
// by a literal byte vector in a test or by a live TCP connection.
package stream

import "time"

// UnboundedSize is the size hint reported by streams with no fixed capacity
// (socket-backed streams). Buffer-backed streams report their real capacity.
const UnboundedSize = -1

// Input is a readable byte stream. Read fills p and returns the number of
// bytes copied; it never blocks past what the concrete binding allows.
type Input interface {
	// Read copies up to len(p) bytes into p, returning how many were copied.
	// A read that cannot make progress returns ErrInputStreamEmpty.
	Read(p []byte) (int, error)

	// PollReadable blocks for up to timeout waiting for at least one byte to
	// become available, returning as soon as data is ready. Buffer-backed
	// streams return immediately: their data is already resident.
	PollReadable(timeout time.Duration) (bool, error)

	// Size reports the stream's fixed capacity, or UnboundedSize.
	Size() int

	// BytesRead is the running count of bytes successfully read.
	BytesRead() uint64

	// LastError returns the error from the most recent failed operation.
	LastError() error

	// Reset rewinds the stream to its initial read position and clears
	// counters and the last error.
	Reset()
}

// Output is a writable byte stream. Write copies p into the stream, writing
// as much as the concrete binding currently accepts.
type Output interface {
	// Write copies p (or a prefix of it, for a partial socket write) into
	// the stream, returning how many bytes were accepted.
	Write(p []byte) (int, error)

	// Size reports the stream's fixed capacity, or UnboundedSize.
	Size() int

	// BytesWritten is the running count of bytes successfully written.
	BytesWritten() uint64

	// LastError returns the error from the most recent failed operation.
	LastError() error

	// Reset rewinds the stream to its initial write position and clears
	// counters and the last error.
	Reset()
}

// ReadFull reads exactly len(p) bytes from in, looping over short reads. If
// in cannot supply the remaining bytes right now it returns in's own error
// (ErrInputStreamEmpty from a drained Buffer, ErrSocketPending from a
// Socket with nothing to read yet), or ErrInputStreamEmpty when in returns
// no bytes and no error; a caller should treat those as "try again".
func ReadFull(in Input, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := in.Read(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, ErrInputStreamEmpty
		}
	}
	return total, nil
}

// WriteFull writes exactly len(p) bytes to out, looping over short/partial
// writes until satisfied. It returns at the first error out reports,
// ErrSocketPending included, with the count of bytes written so far.
func WriteFull(out Output, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := out.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, ErrOutputStreamFull
		}
	}
	return total, nil
}
