package abci

import (
	"fmt"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

type lifecycleState uint32

const (
	// stateInit: waiting for InitChain. Nothing else is allowed.
	stateInit lifecycleState = iota
	// stateReady: waiting for the next height. Prepare, Process and
	// Finalize are allowed.
	stateReady
	// stateFinalized: a block is pending. Commit, or a new attempt at the
	// same height that discards it.
	stateFinalized
	// stateHalted: a fatal error was returned. Nothing is allowed.
	stateHalted
)

func (s lifecycleState) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateReady:
		return "Ready"
	case stateFinalized:
		return "Finalized"
	case stateHalted:
		return "Halted"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// LifecycleGuard enforces the call order of the application: InitChain
// first, Finalize before Commit, heights one after another.
type LifecycleGuard struct {
	mu     sync.Mutex
	state  lifecycleState
	height idx.Block
}

// NewLifecycleGuard starts in Init, or in Ready at height when the chain
// was initialized by an earlier run.
func NewLifecycleGuard(initialized bool, height idx.Block) *LifecycleGuard {
	g := &LifecycleGuard{height: height}
	if initialized {
		g.state = stateReady
	}
	return g
}

func (g *LifecycleGuard) State() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.String()
}

// Height is the last committed height.
func (g *LifecycleGuard) Height() idx.Block {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.height
}

func (g *LifecycleGuard) outOfOrder(call string) error {
	if g.state == stateHalted {
		return ErrHalted
	}
	return fmt.Errorf("%w: %s in state %s", ErrOutOfOrder, call, g.state)
}

// InitChain transitions Init to Ready.
func (g *LifecycleGuard) InitChain(height idx.Block) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != stateInit {
		if g.state == stateHalted {
			return ErrHalted
		}
		return ErrAlreadyInitialized
	}
	g.state = stateReady
	g.height = height
	return nil
}

// Block admits an attempt at height. It reports whether a pending block
// has to be discarded first.
func (g *LifecycleGuard) Block(call string, height idx.Block) (discard bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case stateReady, stateFinalized:
	case stateInit:
		return false, ErrNotInitialized
	default:
		return false, g.outOfOrder(call)
	}
	if height != g.height+1 {
		return false, fmt.Errorf("%w: %s at %d, expected %d", ErrUnexpectedHeight, call, height, g.height+1)
	}
	discard = g.state == stateFinalized
	g.state = stateReady
	return discard, nil
}

// Finalized records a pending block.
func (g *LifecycleGuard) Finalized() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = stateFinalized
}

// Commit transitions Finalized to Ready at the next height.
func (g *LifecycleGuard) Commit() (idx.Block, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != stateFinalized {
		return 0, g.outOfOrder("Commit")
	}
	g.height++
	g.state = stateReady
	return g.height, nil
}

// Halt makes every later call fail.
func (g *LifecycleGuard) Halt() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = stateHalted
}

// Serving reports whether read-only calls may run.
func (g *LifecycleGuard) Serving() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case stateInit:
		return ErrNotInitialized
	case stateHalted:
		return ErrHalted
	}
	return nil
}
