// Package checked provides overflow-aware credit arithmetic. Every consensus
// computation on credits goes through here; a wrapped value would fork the
// chain, so callers treat these errors as fatal.
package checked

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow     = errors.New("arithmetic overflow")
	ErrUnderflow    = errors.New("arithmetic underflow")
	ErrDivideByZero = errors.New("division by zero")
)

// Add returns a+b.
func Add(a, b uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !sum.IsUint64() {
		return 0, ErrOverflow
	}
	return sum.Uint64(), nil
}

// Sub returns a-b.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// Mul returns a*b.
func Mul(a, b uint64) (uint64, error) {
	prod, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !prod.IsUint64() {
		return 0, ErrOverflow
	}
	return prod.Uint64(), nil
}

// MulDiv returns floor(a*b/d) without losing the intermediate product.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	q, overflow := new(uint256.Int).MulDivOverflow(uint256.NewInt(a), uint256.NewInt(b), uint256.NewInt(d))
	if overflow || !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}

// Sum adds all values.
func Sum(values ...uint64) (uint64, error) {
	acc := uint256.NewInt(0)
	for _, v := range values {
		var overflow bool
		acc, overflow = new(uint256.Int).AddOverflow(acc, uint256.NewInt(v))
		if overflow {
			return 0, ErrOverflow
		}
	}
	if !acc.IsUint64() {
		return 0, ErrOverflow
	}
	return acc.Uint64(), nil
}

// ToInt64 converts v, failing when it does not fit.
func ToInt64(v uint64) (int64, error) {
	if v > 1<<63-1 {
		return 0, ErrOverflow
	}
	return int64(v), nil
}

// AddSigned applies a signed delta to an unsigned balance.
func AddSigned(balance uint64, delta int64) (uint64, error) {
	if delta >= 0 {
		return Add(balance, uint64(delta))
	}
	if delta == -1<<63 {
		return Sub(balance, 1<<63)
	}
	return Sub(balance, uint64(-delta))
}

// Percent returns v*(100+increase)/100.
func Percent(v uint64, increase uint16) (uint64, error) {
	return MulDiv(v, 100+uint64(increase), 100)
}
