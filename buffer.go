// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"io"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// minRead is the free space ReadFrom guarantees before each Read call.
const minRead = 512

// Buffer is a bytes.Buffer-like struct backed by an Allocator.
// It implements io.Writer, io.Reader, io.ReaderFrom and io.WriterTo.
// All memory allocation is done through the provided allocator; with a nil
// allocator it falls back to standard Go allocation.
//
// Growth reallocates through the allocator, so a Buffer grows in place as
// long as nothing else is allocated after it.
type Buffer struct {
	alloc Allocator
	buf   []byte // contents are buf[off:len(buf)]
	off   int    // read offset
}

// NewBuffer creates a new Buffer backed by the given allocator.
func NewBuffer(a Allocator) *Buffer {
	return &Buffer{alloc: a}
}

// Write implements io.Writer. It returns ErrOutOfMemory when the allocator
// cannot hold the data, in which case nothing is written.
func (b *Buffer) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	b.compact()
	buf, err := SliceAppend(b.alloc, b.buf, p...)
	if err != nil {
		return 0, errors.Wrapf(err, "buffer: write %d bytes", len(p))
	}
	b.buf = buf
	return len(p), nil
}

// WriteByte writes a single byte to the buffer.
func (b *Buffer) WriteByte(c byte) error {
	b.compact()
	buf, err := SliceAppend(b.alloc, b.buf, c)
	if err != nil {
		return errors.Wrap(err, "buffer: write byte")
	}
	b.buf = buf
	return nil
}

// WriteString writes a string to the buffer.
func (b *Buffer) WriteString(s string) (n int, err error) {
	if len(s) == 0 {
		return 0, nil
	}
	return b.Write(unsafe.Slice(unsafe.StringData(s), len(s)))
}

// WriteTo implements io.WriterTo, draining the buffer into w.
func (b *Buffer) WriteTo(w io.Writer) (n int64, err error) {
	if b.Len() == 0 {
		return 0, nil
	}
	m, err := w.Write(b.buf[b.off:])
	if m > b.Len() {
		panic("memory: buffer WriteTo: invalid Write count")
	}
	b.off += m
	n = int64(m)
	if err != nil {
		return n, err
	}
	if b.Len() > 0 {
		return n, io.ErrShortWrite
	}
	b.Reset()
	return n, nil
}

// Read reads up to len(p) bytes from the buffer into p.
func (b *Buffer) Read(p []byte) (n int, err error) {
	if b.Len() == 0 {
		b.Reset()
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n = copy(p, b.buf[b.off:])
	b.off += n
	return n, nil
}

// ReadByte reads and returns the next byte from the buffer.
func (b *Buffer) ReadByte() (byte, error) {
	if b.Len() == 0 {
		b.Reset()
		return 0, io.EOF
	}
	c := b.buf[b.off]
	b.off++
	return c, nil
}

// Next returns a slice containing the next n bytes from the buffer,
// advancing the buffer as if the bytes had been returned by Read.
// The slice is only valid until the next write.
func (b *Buffer) Next(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	n = min(n, b.Len())
	data := b.buf[b.off : b.off+n]
	b.off += n
	return data
}

// ReadFrom implements io.ReaderFrom. It reads data from r until EOF or error,
// reading straight into allocator memory.
func (b *Buffer) ReadFrom(r io.Reader) (n int64, err error) {
	for {
		if err := b.grow(minRead); err != nil {
			return n, err
		}
		tail := b.buf[len(b.buf):cap(b.buf)]
		m, er := r.Read(tail)
		if m < 0 {
			panic("memory: buffer ReadFrom: reader returned negative count")
		}
		b.buf = b.buf[:len(b.buf)+m]
		n += int64(m)
		if er == io.EOF {
			return n, nil
		}
		if er != nil {
			return n, er
		}
	}
}

// Bytes returns a slice of length b.Len() holding the unread portion of the buffer.
// The slice is valid for use only until the next buffer modification.
func (b *Buffer) Bytes() []byte {
	if b.Len() == 0 {
		return []byte{}
	}
	return b.buf[b.off:]
}

// String returns the contents of the unread portion of the buffer as a string.
func (b *Buffer) String() string {
	return string(b.buf[b.off:])
}

// Len returns the number of bytes of the unread portion of the buffer.
func (b *Buffer) Len() int {
	return len(b.buf) - b.off
}

// Cap returns the capacity of the buffer's underlying byte slice.
func (b *Buffer) Cap() int {
	return cap(b.buf)
}

// Reset resets the buffer to be empty, keeping its storage.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.off = 0
}

// Truncate discards all but the first n unread bytes from the buffer.
// It panics if n is negative or greater than the length of the buffer.
func (b *Buffer) Truncate(n int) {
	if n == 0 {
		b.Reset()
		return
	}
	if n < 0 || n > b.Len() {
		panic("memory: truncation out of range")
	}
	b.buf = b.buf[:b.off+n]
}

// compact moves the unread bytes to the front once everything before them
// has been read.
func (b *Buffer) compact() {
	if b.off == 0 {
		return
	}
	if b.Len() == 0 {
		b.Reset()
		return
	}
	if b.off >= cap(b.buf)/2 {
		n := copy(b.buf, b.buf[b.off:])
		b.buf, b.off = b.buf[:n], 0
	}
}

// grow guarantees room for n more bytes.
func (b *Buffer) grow(n int) error {
	b.compact()
	if cap(b.buf)-len(b.buf) >= n {
		return nil
	}
	if b.alloc == nil {
		buf := make([]byte, len(b.buf), 2*cap(b.buf)+n)
		copy(buf, b.buf)
		b.buf = buf
		return nil
	}
	buf, err := growSlice(b.alloc, b.buf, n)
	if err != nil {
		return errors.Wrapf(err, "buffer: grow by %d bytes", n)
	}
	b.buf = buf
	return nil
}

// CloneString copies s into memory obtained from a. The result is only valid
// while the allocation is live. With a nil allocator it returns a heap copy.
func CloneString(a Allocator, s string) (string, error) {
	if len(s) == 0 {
		return "", nil
	}
	b := Alloc[byte](a, len(s))
	if b == nil {
		return "", errors.Wrapf(ErrOutOfMemory, "unable to clone a %d byte string", len(s))
	}
	copy(b, s)
	return unsafe.String(unsafe.SliceData(b), len(b)), nil
}
