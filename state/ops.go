package state

import (
	"fmt"

	"github.com/dashpay/platform-sub039/utils/checked"
)

// OpKind is the kind of a batched mutation.
type OpKind uint8

const (
	// OpInsert writes the element whether or not one exists.
	OpInsert OpKind = iota
	// OpReplace overwrites an element that must exist.
	OpReplace
	// OpDelete removes an element that must exist.
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpReplace:
		return "replace"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// Op is one mutation of a batch.
type Op struct {
	Kind  OpKind
	Path  Path
	Key   []byte
	Value []byte
	Flags []byte
}

func Insert(path Path, key, value []byte) Op {
	return Op{Kind: OpInsert, Path: path, Key: key, Value: value}
}

// InsertWithFlags writes a refundable element.
func InsertWithFlags(path Path, key, value, flags []byte) Op {
	return Op{Kind: OpInsert, Path: path, Key: key, Value: value, Flags: flags}
}

func Replace(path Path, key, value []byte) Op {
	return Op{Kind: OpReplace, Path: path, Key: key, Value: value}
}

func ReplaceWithFlags(path Path, key, value, flags []byte) Op {
	return Op{Kind: OpReplace, Path: path, Key: key, Value: value, Flags: flags}
}

func Delete(path Path, key []byte) Op {
	return Op{Kind: OpDelete, Path: path, Key: key}
}

func (op Op) String() string {
	return fmt.Sprintf("%s %s/%x", op.Kind, op.Path, op.Key)
}

// SizedElement is the flags and priced size of an element.
type SizedElement struct {
	Flags []byte
	Size  uint64
}

// OperationCosts measures the work a batch did against the store.
//
// Elements with flags are priced individually: an insert or replace of a
// flagged element adds its full size to AddedBytes and lists it in Added,
// and a replaced or deleted flagged element is listed in Removed so its
// prepaid storage can be refunded. Unflagged replacements only add growth.
type OperationCosts struct {
	Seeks         uint64
	LoadedBytes   uint64
	AddedBytes    uint64
	ReplacedBytes uint64
	RemovedBytes  uint64
	Added         []SizedElement
	Removed       []SizedElement
}

// Add accumulates other into c.
func (c *OperationCosts) Add(other OperationCosts) error {
	var err error
	if c.Seeks, err = checked.Add(c.Seeks, other.Seeks); err != nil {
		return err
	}
	if c.LoadedBytes, err = checked.Add(c.LoadedBytes, other.LoadedBytes); err != nil {
		return err
	}
	if c.AddedBytes, err = checked.Add(c.AddedBytes, other.AddedBytes); err != nil {
		return err
	}
	if c.ReplacedBytes, err = checked.Add(c.ReplacedBytes, other.ReplacedBytes); err != nil {
		return err
	}
	if c.RemovedBytes, err = checked.Add(c.RemovedBytes, other.RemovedBytes); err != nil {
		return err
	}
	c.Added = append(c.Added, other.Added...)
	c.Removed = append(c.Removed, other.Removed...)
	return nil
}

// FlaggedAddedBytes sums the sizes listed in Added.
func (c OperationCosts) FlaggedAddedBytes() (uint64, error) {
	var total uint64
	for _, e := range c.Added {
		var err error
		if total, err = checked.Add(total, e.Size); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// measure prices op against the existing element (nil when absent).
func measure(op Op, existing *Element) (OperationCosts, error) {
	var c OperationCosts
	c.Seeks = 1
	var oldSize uint64
	if existing != nil {
		oldSize = ElementSize(op.Path, op.Key, existing.Value)
		c.LoadedBytes = uint64(len(existing.Value) + len(existing.Flags))
	}

	switch op.Kind {
	case OpDelete:
		if existing == nil {
			return c, fmt.Errorf("%w: %s", ErrElementNotFound, op)
		}
		c.RemovedBytes = oldSize
		if len(existing.Flags) != 0 {
			c.Removed = append(c.Removed, SizedElement{Flags: existing.Flags, Size: oldSize})
		}
		return c, nil
	case OpReplace:
		if existing == nil {
			return c, fmt.Errorf("%w: %s", ErrElementNotFound, op)
		}
	case OpInsert:
	default:
		return c, fmt.Errorf("unknown op kind %d", op.Kind)
	}
	if len(op.Value) == 0 {
		return c, fmt.Errorf("%w: %s", ErrEmptyValue, op)
	}

	newSize := ElementSize(op.Path, op.Key, op.Value)
	flagged := len(op.Flags) != 0 || (existing != nil && len(existing.Flags) != 0)
	switch {
	case existing == nil:
		c.AddedBytes = newSize
		if len(op.Flags) != 0 {
			c.Added = append(c.Added, SizedElement{Flags: op.Flags, Size: newSize})
		}
	case flagged:
		c.ReplacedBytes = newSize
		c.RemovedBytes = oldSize
		if len(existing.Flags) != 0 {
			c.Removed = append(c.Removed, SizedElement{Flags: existing.Flags, Size: oldSize})
		}
		c.AddedBytes = newSize
		if len(op.Flags) != 0 {
			c.Added = append(c.Added, SizedElement{Flags: op.Flags, Size: newSize})
		}
	default:
		c.ReplacedBytes = newSize
		if newSize > oldSize {
			c.AddedBytes = newSize - oldSize
		} else {
			c.RemovedBytes = oldSize - newSize
		}
	}
	return c, nil
}
