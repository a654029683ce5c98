package stream

import "time"

// Buffer is a fixed byte-buffer-backed stream, used for codec unit tests and
// for framing a packet into scratch memory before dispatch. Read and Write
// share the same underlying slice but move independent cursors, mirroring
// the teacher's separation of input/output streams over one connection.
type Buffer struct {
	data []byte

	readPos  int
	writePos int

	read    uint64
	written uint64
	lastErr error
}

// NewBuffer wraps buf as a fixed-capacity stream. The stream's capacity is
// len(buf); Write fails with ErrOutputStreamFull past that point.
func NewBuffer(buf []byte) *Buffer {
	return &Buffer{data: buf}
}

func (b *Buffer) Read(p []byte) (int, error) {
	if b.readPos >= len(b.data) {
		b.lastErr = ErrInputStreamEmpty
		return 0, ErrInputStreamEmpty
	}
	n := copy(p, b.data[b.readPos:])
	b.readPos += n
	b.read += uint64(n)
	if n < len(p) {
		b.lastErr = ErrInputStreamEmpty
		return n, ErrInputStreamEmpty
	}
	return n, nil
}

// PollReadable always returns immediately: a buffer's data is already
// resident, so there is nothing to wait for.
func (b *Buffer) PollReadable(timeout time.Duration) (bool, error) {
	return b.readPos < len(b.data), nil
}

func (b *Buffer) Write(p []byte) (int, error) {
	if b.writePos >= len(b.data) {
		b.lastErr = ErrOutputStreamFull
		return 0, ErrOutputStreamFull
	}
	n := copy(b.data[b.writePos:], p)
	b.writePos += n
	b.written += uint64(n)
	if n < len(p) {
		b.lastErr = ErrOutputStreamFull
		return n, ErrOutputStreamFull
	}
	return n, nil
}

func (b *Buffer) Size() int { return len(b.data) }

func (b *Buffer) BytesRead() uint64    { return b.read }
func (b *Buffer) BytesWritten() uint64 { return b.written }

func (b *Buffer) LastError() error { return b.lastErr }

// Reset rewinds both cursors to the start of the buffer and clears counters.
func (b *Buffer) Reset() {
	b.readPos = 0
	b.writePos = 0
	b.read = 0
	b.written = 0
	b.lastErr = nil
}

// ResetRead rewinds only the read cursor, leaving written data intact -
// useful to re-read what was just encoded into the same buffer.
func (b *Buffer) ResetRead() {
	b.readPos = 0
	b.read = 0
}

// Written returns the slice of the buffer written so far.
func (b *Buffer) Written() []byte {
	return b.data[:b.writePos]
}
