// Package drive lays platform entities out in the authenticated store.
//
// Reads decode stored elements into dpp types; writes are returned as
// state.Op values so callers can batch and price them before applying.
// Store failures are wrapped as platform.StorageError and undecodable
// elements are reported as platform.CorruptedStateError.
package drive

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

// Drive reads and plans writes of platform state.
type Drive struct {
	store state.Store
}

func New(store state.Store) *Drive {
	return &Drive{store: store}
}

func (d *Drive) Store() state.Store {
	return d.store
}

// Get reads a raw element.
func (d *Drive) Get(tx state.Transaction, path state.Path, key []byte) (*state.Element, error) {
	e, err := d.store.Get(tx, path, key)
	if err != nil {
		return nil, platform.NewStorageError("get "+path.String(), err)
	}
	return e, nil
}

// Apply runs ops, wrapping failures as storage errors.
func (d *Drive) Apply(tx state.Transaction, ops []state.Op) (state.OperationCosts, error) {
	costs, err := d.store.Apply(tx, ops)
	if err != nil {
		return costs, platform.NewStorageError("apply", err)
	}
	return costs, nil
}

// Estimate prices ops without applying them.
func (d *Drive) Estimate(tx state.Transaction, ops []state.Op) (state.OperationCosts, error) {
	costs, err := d.store.Estimate(tx, ops)
	if err != nil {
		return costs, platform.NewStorageError("estimate", err)
	}
	return costs, nil
}

func (d *Drive) Query(tx state.Transaction, q state.PathQuery) ([]state.KeyElement, error) {
	items, err := d.store.Query(tx, q)
	if err != nil {
		return nil, platform.NewStorageError("query "+q.Path.String(), err)
	}
	return items, nil
}

// GetU64 reads an 8-byte counter; absent reads as zero.
func (d *Drive) GetU64(tx state.Transaction, path state.Path, key []byte) (uint64, bool, error) {
	e, err := d.Get(tx, path, key)
	if err != nil || e == nil {
		return 0, false, err
	}
	if len(e.Value) != 8 {
		return 0, false, platform.Corrupted("%s/%x: %d-byte counter", path, key, len(e.Value))
	}
	return bigendian.BytesToUint64(e.Value), true, nil
}

// GetRLP decodes an RLP element into out. It reports whether the element exists.
func (d *Drive) GetRLP(tx state.Transaction, path state.Path, key []byte, out interface{}) (bool, error) {
	e, err := d.Get(tx, path, key)
	if err != nil || e == nil {
		return false, err
	}
	if err := rlp.DecodeBytes(e.Value, out); err != nil {
		return false, platform.Corrupted("%s/%x: %v", path, key, err)
	}
	return true, nil
}

// PutU64 plans an upsert of a counter.
func PutU64(path state.Path, key []byte, v uint64) state.Op {
	return state.Insert(path, key, U64(v))
}

// PutRLP plans an upsert of an RLP-encoded value.
func PutRLP(path state.Path, key []byte, v interface{}) (state.Op, error) {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		return state.Op{}, err
	}
	return state.Insert(path, key, b), nil
}

// MustPutRLP is PutRLP for values whose encoding cannot fail.
func MustPutRLP(path state.Path, key []byte, v interface{}) state.Op {
	op, err := PutRLP(path, key, v)
	if err != nil {
		panic("can't encode " + path.String() + ": " + err.Error())
	}
	return op
}

func decodeRLP(b []byte, out interface{}) error {
	return rlp.DecodeBytes(b, out)
}
