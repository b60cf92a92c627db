package platform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/utils/checked"
)

// UnknownVersionMismatch means this node has no implementation for the
// version the active protocol asks for. It is fatal: carrying on would
// silently diverge from replicas that do understand the version.
type UnknownVersionMismatch struct {
	Method   string
	Known    []FeatureVersion
	Received FeatureVersion
}

func (e *UnknownVersionMismatch) Error() string {
	return fmt.Sprintf("unknown version mismatch for %s: received %d, known %v", e.Method, e.Received, e.Known)
}

// UnknownProtocolVersion is returned when the activated protocol version is
// not in the version table.
type UnknownProtocolVersion struct {
	Version uint32
	Known   []uint32
}

func (e *UnknownProtocolVersion) Error() string {
	return fmt.Sprintf("unknown protocol version %d, known %v", e.Version, e.Known)
}

// StorageError wraps any failure surfaced by the store while applying or
// reading consensus state.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError returns nil for a nil err so call sites can wrap inline.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// CorruptedStateError reports stored data that violates an invariant the
// node itself maintains.
type CorruptedStateError struct {
	Reason string
}

func (e *CorruptedStateError) Error() string {
	return "corrupted state: " + e.Reason
}

func Corrupted(format string, args ...interface{}) error {
	return &CorruptedStateError{Reason: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err must halt block processing.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var (
		uvm *UnknownVersionMismatch
		upv *UnknownProtocolVersion
		se  *StorageError
		cse *CorruptedStateError
	)
	switch {
	case errors.As(err, &uvm), errors.As(err, &upv), errors.As(err, &se), errors.As(err, &cse):
		return true
	case errors.Is(err, checked.ErrOverflow), errors.Is(err, checked.ErrUnderflow), errors.Is(err, checked.ErrDivideByZero):
		return true
	case errors.Is(err, inter.ErrEpochOverflow):
		return true
	}
	return false
}

// Dispatch picks the implementation registered for v.
func Dispatch[T any](method string, v FeatureVersion, impls map[FeatureVersion]T) (T, error) {
	impl, ok := impls[v]
	if !ok {
		known := make([]FeatureVersion, 0, len(impls))
		for k := range impls {
			known = append(known, k)
		}
		sort.Slice(known, func(i, j int) bool { return known[i] < known[j] })
		var zero T
		return zero, &UnknownVersionMismatch{Method: method, Known: known, Received: v}
	}
	return impl, nil
}
