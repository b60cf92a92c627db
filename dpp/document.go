package dpp

import (
	"bytes"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"

	"github.com/dashpay/platform-sub039/inter"
)

// Field is one property value. Integers are 8-byte big-endian, identifiers
// 32 bytes, strings UTF-8.
type Field struct {
	Name  string
	Value []byte
}

// Document is an instance of a document type. Fields are ordered by name.
type Document struct {
	ID        inter.Identifier
	OwnerID   inter.Identifier
	Revision  uint64
	Fields    []Field
	CreatedAt inter.Timestamp
	UpdatedAt inter.Timestamp
	// Price is the sale price in credits, 0 when not for sale.
	Price uint64
}

// DocumentID derives the id of a document created by owner in a contract
// type with the client-chosen entropy.
func DocumentID(contract inter.Identifier, owner inter.Identifier, typeName string, entropy []byte) inter.Identifier {
	return inter.DeriveIdentifier(contract.Bytes(), owner.Bytes(), []byte(typeName), entropy)
}

// Get returns the value of the named field.
func (d *Document) Get(name string) ([]byte, bool) {
	n := sort.Search(len(d.Fields), func(i int) bool { return d.Fields[i].Name >= name })
	if n < len(d.Fields) && d.Fields[n].Name == name {
		return d.Fields[n].Value, true
	}
	return nil, false
}

// Set inserts or replaces a field, keeping order.
func (d *Document) Set(name string, value []byte) {
	n := sort.Search(len(d.Fields), func(i int) bool { return d.Fields[i].Name >= name })
	if n < len(d.Fields) && d.Fields[n].Name == name {
		d.Fields[n].Value = value
		return
	}
	d.Fields = append(d.Fields, Field{})
	copy(d.Fields[n+1:], d.Fields[n:])
	d.Fields[n] = Field{Name: name, Value: value}
}

// SortFields restores field order after external construction.
func (d *Document) SortFields() {
	sort.Slice(d.Fields, func(i, j int) bool { return d.Fields[i].Name < d.Fields[j].Name })
}

// IndexKey builds the key of d in index: every property value prefixed by
// its length. ok is false when any indexed property is missing; such
// documents are not constrained by a unique index.
func IndexKey(d *Document, index *Index) (key []byte, ok bool) {
	var buf bytes.Buffer
	ok = true
	for _, p := range index.Properties {
		v, present := d.Get(p)
		if !present {
			ok = false
		}
		buf.Write(bigendian.Uint16ToBytes(uint16(len(v))))
		buf.Write(v)
	}
	return buf.Bytes(), ok
}

// IntegerValue encodes an integer property.
func IntegerValue(v uint64) []byte {
	return bigendian.Uint64ToBytes(v)
}

func (d Document) Copy() Document {
	cp := d
	cp.Fields = make([]Field, len(d.Fields))
	for i, f := range d.Fields {
		cp.Fields[i] = Field{Name: f.Name, Value: append([]byte(nil), f.Value...)}
	}
	return cp
}
