// Package bits implements an LSB-first bit stream. The canonical codec keeps
// booleans and integer size prefixes here so the byte stream stays aligned.
package bits

import "errors"

// ErrUnexpectedEnd is the panic value raised when a read overruns the stream.
var ErrUnexpectedEnd = errors.New("bits: read past end of stream")

type (
	// Array is the storage shared by a Writer and any Readers over it.
	Array struct {
		Bytes []byte
	}

	// Writer appends bits to an Array.
	Writer struct {
		*Array
		bitOffset int // next free bit in the last byte, 0 means a new byte is needed
	}

	// Reader consumes bits from an Array.
	Reader struct {
		*Array
		byteOffset int
		bitOffset  int
	}
)

func NewWriter(arr *Array) *Writer {
	return &Writer{Array: arr}
}

func NewReader(arr *Array) *Reader {
	return &Reader{Array: arr}
}

func lowBits(v uint, n int) uint {
	return v & (1<<uint(n) - 1)
}

// Write appends the lowest n bits of v.
func (a *Writer) Write(n int, v uint) {
	for n > 0 {
		if a.bitOffset == 0 {
			a.Bytes = append(a.Bytes, 0)
		}
		free := 8 - a.bitOffset
		chunk := n
		if chunk > free {
			chunk = free
		}
		a.Bytes[len(a.Bytes)-1] |= byte(lowBits(v, chunk) << uint(a.bitOffset))
		a.bitOffset = (a.bitOffset + chunk) % 8
		v >>= uint(chunk)
		n -= chunk
	}
}

// Read consumes n bits and returns them as the low bits of the result.
func (a *Reader) Read(n int) uint {
	var (
		v     uint
		shift uint
	)
	for n > 0 {
		if a.byteOffset >= len(a.Bytes) {
			panic(ErrUnexpectedEnd)
		}
		free := 8 - a.bitOffset
		chunk := n
		if chunk > free {
			chunk = free
		}
		cur := uint(a.Bytes[a.byteOffset]) >> uint(a.bitOffset)
		v |= lowBits(cur, chunk) << shift
		shift += uint(chunk)
		a.bitOffset += chunk
		if a.bitOffset == 8 {
			a.bitOffset = 0
			a.byteOffset++
		}
		n -= chunk
	}
	return v
}

// View returns the next n bits without consuming them.
func (a *Reader) View(n int) uint {
	cp := *a
	return cp.Read(n)
}

// NonReadBytes counts bytes not fully consumed, including a partially read one.
func (a *Reader) NonReadBytes() int {
	return len(a.Bytes) - a.byteOffset
}

// NonReadBits counts the remaining bits.
func (a *Reader) NonReadBits() int {
	return a.NonReadBytes()*8 - a.bitOffset
}
