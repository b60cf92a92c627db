// Package fast holds append-only byte buffers used by the canonical codec.
//
// The reader does not return errors. Reading past the end panics with
// ErrUnexpectedEnd, which the codec recovers into a decoding error, so callers
// working with untrusted input must go through cser.UnmarshalBinaryAdapter.
package fast

import "errors"

// ErrUnexpectedEnd is the panic value raised when a read overruns the buffer.
var ErrUnexpectedEnd = errors.New("fast: read past end of buffer")

// Reader consumes a byte slice front to back.
type Reader struct {
	buf    []byte
	offset int
}

// Writer accumulates bytes.
type Writer struct {
	buf []byte
}

// NewReader wraps bb without copying it.
func NewReader(bb []byte) *Reader {
	return &Reader{buf: bb}
}

// NewWriter appends to bb. Pass make([]byte, 0, n) to preallocate.
func NewWriter(bb []byte) *Writer {
	return &Writer{buf: bb}
}

// WriteByte appends v. It never fails; the error return satisfies io.ByteWriter.
func (b *Writer) WriteByte(v byte) error {
	b.buf = append(b.buf, v)
	return nil
}

// Write appends v.
func (b *Writer) Write(v []byte) {
	b.buf = append(b.buf, v...)
}

// Bytes returns the accumulated content.
func (b *Writer) Bytes() []byte {
	return b.buf
}

// Len is the number of bytes written so far.
func (b *Writer) Len() int {
	return len(b.buf)
}

// Read returns the next n bytes. The result aliases the underlying buffer.
func (b *Reader) Read(n int) []byte {
	if n < 0 || n > len(b.buf)-b.offset {
		panic(ErrUnexpectedEnd)
	}
	res := b.buf[b.offset : b.offset+n]
	b.offset += n
	return res
}

// ReadByte returns the next byte.
func (b *Reader) ReadByte() byte {
	if b.offset >= len(b.buf) {
		panic(ErrUnexpectedEnd)
	}
	res := b.buf[b.offset]
	b.offset++
	return res
}

// Position is the number of bytes consumed.
func (b *Reader) Position() int {
	return b.offset
}

// Remaining is the number of bytes left to read.
func (b *Reader) Remaining() int {
	return len(b.buf) - b.offset
}

// Bytes returns the whole underlying buffer, read or not.
func (b *Reader) Bytes() []byte {
	return b.buf
}

// Empty reports whether everything has been consumed.
func (b *Reader) Empty() bool {
	return b.offset == len(b.buf)
}
