// Package inter defines the platform's core value types shared by the
// validation, execution and consensus layers. This file contains the
// Identifier, the 32-byte address of every identity, contract, document and
// token on the platform.
//
// Key concepts:
//   - Identifier: 32 bytes, rendered in base58 for clients
//   - DeriveIdentifier: keccak256 over its parts, used for deterministic IDs
//   - ZeroIdentifier: never a valid owner or target
//   - Epoch, Timestamp, BlockInfo: the block context a transition runs under
//   - FeeResult, BlockFees: what a transition and a block were charged
//
// Usage:
//
//	id := inter.DeriveIdentifier(owner.Bytes(), entropy)
//	parsed, err := inter.IdentifierFromString(id.String())
//	if err != nil || parsed != id {
//		return inter.ErrInvalidIdentifier
//	}
//
// Identifiers order by raw bytes, see Less, and state paths are built from
// Bytes, so two nodes always agree on iteration order.
package inter

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"
)

// IdentifierLength is the byte length of every platform identifier.
const IdentifierLength = 32

// ErrInvalidIdentifier is returned when bytes or text do not decode to 32 bytes.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Identifier addresses identities, contracts, documents and tokens.
type Identifier [IdentifierLength]byte

// ZeroIdentifier is never a valid owner or target.
var ZeroIdentifier Identifier

// String renders the identifier in base58, the form clients use.
func (id Identifier) String() string {
	return base58.Encode(id[:])
}

// Bytes returns a copy of the identifier bytes.
func (id Identifier) Bytes() []byte {
	out := make([]byte, IdentifierLength)
	copy(out, id[:])
	return out
}

func (id Identifier) IsZero() bool {
	return id == ZeroIdentifier
}

// Less orders identifiers bytewise.
func (id Identifier) Less(other Identifier) bool {
	for i := range id {
		if id[i] != other[i] {
			return id[i] < other[i]
		}
	}
	return false
}

// IdentifierFromBytes copies b into an Identifier.
func IdentifierFromBytes(b []byte) (Identifier, error) {
	var id Identifier
	if len(b) != IdentifierLength {
		return id, fmt.Errorf("%w: %d bytes", ErrInvalidIdentifier, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// IdentifierFromString parses the base58 form.
func IdentifierFromString(s string) (Identifier, error) {
	raw := base58.Decode(s)
	if len(raw) == 0 {
		return ZeroIdentifier, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return IdentifierFromBytes(raw)
}

// DeriveIdentifier hashes the concatenated parts. Contract, document, token
// and identity ids are all derived this way from their creation inputs.
func DeriveIdentifier(parts ...[]byte) Identifier {
	var id Identifier
	copy(id[:], crypto.Keccak256(parts...))
	return id
}

// MarshalText renders base58 for config files and logs.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identifier) UnmarshalText(input []byte) error {
	res, err := IdentifierFromString(string(input))
	if err != nil {
		return err
	}
	*id = res
	return nil
}
