package inter

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
)

const (
	// EpochKeyOffset shifts epoch indices so their keys never collide with
	// the low-valued tags stored beside them in the pools subtree.
	EpochKeyOffset = 256

	// MaxEpochIndex is the largest index whose key still fits in two bytes.
	MaxEpochIndex = 0xffff - EpochKeyOffset
)

var (
	ErrEpochOverflow   = errors.New("epoch index overflow")
	ErrInvalidEpochKey = errors.New("invalid epoch key")
)

// Epoch is immutable once built. Key is always Index+256, big-endian.
type Epoch struct {
	Index uint16
	Key   [2]byte
}

// NewEpoch fails with ErrEpochOverflow above MaxEpochIndex.
func NewEpoch(index uint16) (Epoch, error) {
	if index > MaxEpochIndex {
		return Epoch{}, fmt.Errorf("%w: %d > %d", ErrEpochOverflow, index, MaxEpochIndex)
	}
	e := Epoch{Index: index}
	copy(e.Key[:], bigendian.Uint16ToBytes(index+EpochKeyOffset))
	return e, nil
}

// MustEpoch is NewEpoch for indices known to be in range.
func MustEpoch(index uint16) Epoch {
	e, err := NewEpoch(index)
	if err != nil {
		panic(err)
	}
	return e
}

// EpochFromKey inverts Key.
func EpochFromKey(key []byte) (Epoch, error) {
	if len(key) != 2 {
		return Epoch{}, fmt.Errorf("%w: length %d", ErrInvalidEpochKey, len(key))
	}
	raw := bigendian.BytesToUint16(key)
	if raw < EpochKeyOffset {
		return Epoch{}, fmt.Errorf("%w: %d below offset", ErrInvalidEpochKey, raw)
	}
	return NewEpoch(raw - EpochKeyOffset)
}

// Next returns the following epoch or ErrEpochOverflow.
func (e Epoch) Next() (Epoch, error) {
	if e.Index >= MaxEpochIndex {
		return Epoch{}, fmt.Errorf("%w: cannot advance past %d", ErrEpochOverflow, e.Index)
	}
	return NewEpoch(e.Index + 1)
}

// Valid reports whether Key matches Index.
func (e Epoch) Valid() bool {
	exp, err := NewEpoch(e.Index)
	return err == nil && exp == e
}

func (e Epoch) String() string {
	return fmt.Sprintf("epoch(%d)", e.Index)
}
