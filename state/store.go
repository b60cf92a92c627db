// Package state is the authenticated key-value store the execution pipeline
// writes to.
//
// Items live under hierarchical paths. All mutations of a block happen in
// one Transaction which is either committed or rolled back as a whole.
// Applying a batch reports the work it did as OperationCosts so fees can be
// priced from what was actually stored.
package state

import (
	"errors"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

var (
	ErrElementNotFound    = errors.New("element not found")
	ErrEmptyValue         = errors.New("empty element value")
	ErrTransactionClosed  = errors.New("transaction already closed")
	ErrTransactionPending = errors.New("another transaction is open")
	ErrForeignTransaction = errors.New("transaction belongs to another store")
	ErrInvalidProof       = errors.New("invalid proof")
)

// Transaction is an open write transaction.
type Transaction interface {
	ID() uint64
}

// Store is the authenticated store.
//
// A nil Transaction reads the last committed state. At most one write
// transaction is open at a time.
type Store interface {
	StartTransaction() (Transaction, error)
	CommitTransaction(tx Transaction) error
	RollbackTransaction(tx Transaction)

	// Get returns nil when the item is absent.
	Get(tx Transaction, path Path, key []byte) (*Element, error)
	// Apply runs ops in order. On error the transaction is left in an
	// undefined state and must be rolled back.
	Apply(tx Transaction, ops []Op) (OperationCosts, error)
	// Estimate prices ops as Apply would without mutating tx.
	Estimate(tx Transaction, ops []Op) (OperationCosts, error)
	Query(tx Transaction, q PathQuery) ([]KeyElement, error)

	// Prove proves the result of q against the last persisted root.
	Prove(q PathQuery) (*Proof, error)

	RootHash(tx Transaction) (hash.Hash, error)
	// Persist flushes committed state to disk and records it as height.
	Persist(height idx.Block) (hash.Hash, error)
	LastPersisted() (idx.Block, hash.Hash)

	Close() error
}
