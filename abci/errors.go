package abci

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

var (
	ErrNotInitialized     = errors.New("chain not initialized")
	ErrAlreadyInitialized = errors.New("chain already initialized")
	ErrOutOfOrder         = errors.New("call out of order")
	ErrUnexpectedHeight   = errors.New("unexpected block height")
	ErrHalted             = errors.New("application halted")
)

// HaltError signals that the node met a condition it cannot execute past.
// The engine must stop consensus and not call Commit.
type HaltError struct {
	Reason string
	Height idx.Block
	Err    error
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("HALT at height %d: %s", e.Height, e.Reason)
}

func (e *HaltError) Unwrap() error { return e.Err }

func NewHaltError(height idx.Block, err error) *HaltError {
	return &HaltError{Reason: err.Error(), Height: height, Err: err}
}

// IsHalt checks whether err is a HaltError and returns it.
func IsHalt(err error) (*HaltError, bool) {
	var h *HaltError
	if errors.As(err, &h) {
		return h, true
	}
	return nil, false
}
