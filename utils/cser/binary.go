// Package cser is the canonical binary codec for state transitions.
//
// Layout: [byte stream][bit stream][reversed varint(len(bit stream))].
// Decoding is strict. Every byte and bit must be consumed, integers must be
// minimally sized and unused trailing bits must be zero, so a value has
// exactly one valid encoding and hashing the bytes is stable across replicas.
package cser

import (
	"github.com/dashpay/platform-sub039/utils/bits"
	"github.com/dashpay/platform-sub039/utils/fast"
)

// MarshalBinaryAdapter runs marshalCser against a fresh Writer and packs both
// streams into one slice.
func MarshalBinaryAdapter(marshalCser func(*Writer) error) ([]byte, error) {
	w := NewWriter()
	if err := marshalCser(w); err != nil {
		return nil, err
	}
	return binaryFromCSER(w.BitsW.Array, w.BytesW.Bytes())
}

func binaryFromCSER(bbits *bits.Array, bbytes []byte) ([]byte, error) {
	body := fast.NewWriter(bbytes)
	body.Write(bbits.Bytes)

	size := fast.NewWriter(make([]byte, 0, 4))
	writeUint64Compact(size, uint64(len(bbits.Bytes)))
	body.Write(reversed(size.Bytes()))
	return body.Bytes(), nil
}

func binaryToCSER(raw []byte) (*bits.Array, []byte, error) {
	sizeReader := fast.NewReader(reversed(tail(raw, 9)))
	bitsSize := readUint64Compact(sizeReader)

	raw = raw[:len(raw)-sizeReader.Position()]
	if uint64(len(raw)) < bitsSize {
		return nil, nil, ErrMalformedEncoding
	}
	split := uint64(len(raw)) - bitsSize
	return &bits.Array{Bytes: raw[split:]}, raw[:split], nil
}

// UnmarshalBinaryAdapter splits raw and runs unmarshalCser over it. Panics
// from overruns or non-canonical fields are returned as errors.
func UnmarshalBinaryAdapter(raw []byte, unmarshalCser func(*Reader) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch r {
			case ErrNonCanonicalEncoding, ErrTooLargeAlloc:
				err = r.(error)
			default:
				err = ErrMalformedEncoding
			}
		}
	}()
	if len(raw) == 0 {
		return ErrMalformedEncoding
	}

	bbits, bbytes, err := binaryToCSER(raw)
	if err != nil {
		return err
	}
	r := &Reader{
		BitsR:  bits.NewReader(bbits),
		BytesR: fast.NewReader(bbytes),
	}
	if err := unmarshalCser(r); err != nil {
		return err
	}

	if r.BitsR.NonReadBytes() > 1 {
		return ErrNonCanonicalEncoding
	}
	if r.BitsR.Read(r.BitsR.NonReadBits()) != 0 {
		return ErrNonCanonicalEncoding
	}
	if !r.BytesR.Empty() {
		return ErrNonCanonicalEncoding
	}
	return nil
}

func tail(b []byte, n int) []byte {
	if len(b) > n {
		return b[len(b)-n:]
	}
	return b
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
