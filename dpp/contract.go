package dpp

import (
	"math"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"

	"github.com/dashpay/platform-sub039/inter"
)

// PropertyType is the value type of a document property.
type PropertyType uint8

const (
	PropertyString PropertyType = iota
	PropertyInteger
	PropertyBytes
	PropertyIdentifier
)

// PropertyDef describes one document property.
type PropertyDef struct {
	Name      string
	Type      PropertyType
	Required  bool
	MaxLength uint32
}

// Index is a document index over an ordered list of properties.
type Index struct {
	Name       string
	Properties []string
	Unique     bool
}

// DocumentType is a schema within a data contract. Properties are ordered
// by name.
type DocumentType struct {
	Name         string
	Properties   []PropertyDef
	Indices      []Index
	Mutable      bool
	CanBeDeleted bool
	Transferable bool
	Tradeable    bool
	KeepsHistory bool
}

// Property returns the definition of the named property.
func (dt *DocumentType) Property(name string) (*PropertyDef, bool) {
	for i := range dt.Properties {
		if dt.Properties[i].Name == name {
			return &dt.Properties[i], true
		}
	}
	return nil, false
}

// TokenConfiguration declares a token at a fixed position in its contract.
// MaxSupply 0 means unlimited.
type TokenConfiguration struct {
	Position     uint16
	BaseSupply   uint64
	MaxSupply    uint64
	Decimals     uint8
	KeepsHistory bool
}

// SupplyCap returns the effective maximum supply.
func (t TokenConfiguration) SupplyCap() uint64 {
	if t.MaxSupply == 0 {
		return math.MaxUint64
	}
	return t.MaxSupply
}

// DataContract owns document types and tokens.
type DataContract struct {
	ID            inter.Identifier
	OwnerID       inter.Identifier
	Version       uint32
	DocumentTypes []DocumentType
	Tokens        []TokenConfiguration
	KeepsHistory  bool
}

// DocumentType returns the named document type.
func (c *DataContract) DocumentType(name string) (*DocumentType, bool) {
	for i := range c.DocumentTypes {
		if c.DocumentTypes[i].Name == name {
			return &c.DocumentTypes[i], true
		}
	}
	return nil, false
}

// Token returns the token configured at position.
func (c *DataContract) Token(position uint16) (*TokenConfiguration, bool) {
	for i := range c.Tokens {
		if c.Tokens[i].Position == position {
			return &c.Tokens[i], true
		}
	}
	return nil, false
}

// ContractID derives the id of a contract created by owner with nonce.
func ContractID(owner inter.Identifier, nonce uint64) inter.Identifier {
	return inter.DeriveIdentifier(owner.Bytes(), bigendian.Uint64ToBytes(nonce))
}

// TokenID derives the id of the token at position in contract.
func TokenID(contract inter.Identifier, position uint16) inter.Identifier {
	return inter.DeriveIdentifier(contract.Bytes(), bigendian.Uint16ToBytes(position))
}
