package cser

import (
	"errors"
	"math/big"

	"github.com/dashpay/platform-sub039/utils/bits"
	"github.com/dashpay/platform-sub039/utils/fast"
)

var (
	ErrNonCanonicalEncoding = errors.New("non canonical encoding")
	ErrMalformedEncoding    = errors.New("malformed encoding")
	ErrTooLargeAlloc        = errors.New("too large allocation")
)

// MaxAlloc bounds any single length-prefixed field.
const MaxAlloc = 100 * 1024

// Writer splits output into a bit stream (flags, size prefixes) and a byte
// stream (payload).
type Writer struct {
	BitsW  *bits.Writer
	BytesW *fast.Writer
}

// Reader mirrors Writer.
type Reader struct {
	BitsR  *bits.Reader
	BytesR *fast.Reader
}

func NewWriter() *Writer {
	return &Writer{
		BitsW:  bits.NewWriter(&bits.Array{Bytes: make([]byte, 0, 32)}),
		BytesW: fast.NewWriter(make([]byte, 0, 256)),
	}
}

// writeUint64Compact is a little-endian base-128 varint whose final group
// carries the 0x80 stop flag.
func writeUint64Compact(w *fast.Writer, v uint64) {
	for {
		chunk := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			w.WriteByte(chunk | 0x80)
			return
		}
		w.WriteByte(chunk)
	}
}

func readUint64Compact(r *fast.Reader) uint64 {
	var v uint64
	for i := 0; ; i++ {
		if i >= 10 {
			panic(ErrMalformedEncoding)
		}
		chunk := r.ReadByte()
		word := uint64(chunk & 0x7f)
		stop := chunk&0x80 != 0
		v |= word << (7 * uint(i))
		if stop {
			if i > 0 && word == 0 {
				panic(ErrNonCanonicalEncoding)
			}
			return v
		}
	}
}

// writeUint64BitCompact writes v little-endian using at least minSize bytes
// and no more than needed.
func writeUint64BitCompact(w *fast.Writer, v uint64, minSize int) (size int) {
	for size < minSize || v != 0 {
		w.WriteByte(byte(v))
		size++
		v >>= 8
	}
	return size
}

func readUint64BitCompact(r *fast.Reader, size int) uint64 {
	buf := r.Read(size)
	var v uint64
	for i, b := range buf {
		v |= uint64(b) << (8 * uint(i))
	}
	if size > 1 && buf[size-1] == 0 {
		panic(ErrNonCanonicalEncoding)
	}
	return v
}

func (w *Writer) writeU64Bits(minSize int, sizeBits int, v uint64) {
	size := writeUint64BitCompact(w.BytesW, v, minSize)
	w.BitsW.Write(sizeBits, uint(size-minSize))
}

func (r *Reader) readU64Bits(minSize int, sizeBits int) uint64 {
	size := int(r.BitsR.Read(sizeBits)) + minSize
	return readUint64BitCompact(r.BytesR, size)
}

func (w *Writer) U8(v uint8) { w.BytesW.WriteByte(v) }

func (r *Reader) U8() uint8 { return r.BytesR.ReadByte() }

func (w *Writer) U16(v uint16) { w.writeU64Bits(1, 1, uint64(v)) }

func (r *Reader) U16() uint16 { return uint16(r.readU64Bits(1, 1)) }

func (w *Writer) U32(v uint32) { w.writeU64Bits(1, 2, uint64(v)) }

func (r *Reader) U32() uint32 { return uint32(r.readU64Bits(1, 2)) }

func (w *Writer) U64(v uint64) { w.writeU64Bits(1, 3, v) }

func (r *Reader) U64() uint64 { return r.readU64Bits(1, 3) }

// I64 is a sign bit followed by the magnitude.
func (w *Writer) I64(v int64) {
	w.Bool(v < 0)
	if v < 0 {
		w.U64(uint64(-v))
		return
	}
	w.U64(uint64(v))
}

func (r *Reader) I64() int64 {
	neg := r.Bool()
	abs := r.U64()
	if neg && abs == 0 {
		panic(ErrNonCanonicalEncoding)
	}
	if neg {
		return -int64(abs)
	}
	return int64(abs)
}

// U56 is used for lengths; zero takes no payload bytes.
func (w *Writer) U56(v uint64) {
	const max = 1<<(8*7) - 1
	if v > max {
		panic(ErrTooLargeAlloc)
	}
	w.writeU64Bits(0, 3, v)
}

func (r *Reader) U56() uint64 { return r.readU64Bits(0, 3) }

func (w *Writer) Bool(v bool) {
	if v {
		w.BitsW.Write(1, 1)
		return
	}
	w.BitsW.Write(1, 0)
}

func (r *Reader) Bool() bool { return r.BitsR.Read(1) != 0 }

func (w *Writer) FixedBytes(v []byte) { w.BytesW.Write(v) }

func (r *Reader) FixedBytes(v []byte) { copy(v, r.BytesR.Read(len(v))) }

// Bytes32 writes a 32-byte identifier or hash.
func (w *Writer) Bytes32(v [32]byte) { w.BytesW.Write(v[:]) }

func (r *Reader) Bytes32() (v [32]byte) {
	r.FixedBytes(v[:])
	return v
}

// SliceBytes writes a U56 length prefix followed by the bytes.
func (w *Writer) SliceBytes(v []byte) {
	w.U56(uint64(len(v)))
	w.FixedBytes(v)
}

func (r *Reader) SliceBytes(maxLen int) []byte {
	size := r.U56()
	if size > uint64(maxLen) {
		panic(ErrTooLargeAlloc)
	}
	buf := make([]byte, size)
	r.FixedBytes(buf)
	return buf
}

func (w *Writer) String(v string) { w.SliceBytes([]byte(v)) }

func (r *Reader) String(maxLen int) string { return string(r.SliceBytes(maxLen)) }

// Len writes a collection size.
func (w *Writer) Len(n int) { w.U56(uint64(n)) }

// Len reads a collection size and rejects anything above max.
func (r *Reader) Len(max int) int {
	n := r.U56()
	if n > uint64(max) {
		panic(ErrTooLargeAlloc)
	}
	return int(n)
}

// OptionalU64 is a presence bit followed by the value.
func (w *Writer) OptionalU64(v *uint64) {
	w.Bool(v != nil)
	if v != nil {
		w.U64(*v)
	}
}

func (r *Reader) OptionalU64() *uint64 {
	if !r.Bool() {
		return nil
	}
	v := r.U64()
	return &v
}

// BigInt writes the magnitude only; the sign is not encoded.
func (w *Writer) BigInt(v *big.Int) {
	if v.Sign() == 0 {
		w.SliceBytes(nil)
		return
	}
	w.SliceBytes(v.Bytes())
}

func (r *Reader) BigInt() *big.Int {
	buf := r.SliceBytes(512)
	if len(buf) > 0 && buf[0] == 0 {
		panic(ErrNonCanonicalEncoding)
	}
	return new(big.Int).SetBytes(buf)
}
