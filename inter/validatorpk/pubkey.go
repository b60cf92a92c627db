// Package validatorpk provides a typed representation of masternode
// operator public keys. The type byte travels with the key, so the BFT
// engine and the state store agree on the scheme without a side channel.
//
// Key concepts:
//   - PubKey: a scheme type byte followed by the raw key
//   - Types: the supported schemes, secp256k1 and BLS12-381
//   - Validate: checks the raw length against the scheme
//
// Usage:
//
//	pk, err := validatorpk.FromString("0xb1...")
//	if err != nil {
//		return err
//	}
//	if err := pk.Validate(); err != nil {
//		return err
//	}
//	wire := pk.Bytes()
//
// The text form is the hex of Bytes, so config files and RPC responses
// round-trip through FromString.
package validatorpk

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PubKey is a masternode operator public key.
type PubKey struct {
	// Type identifies the signature scheme, see Types.
	Type uint8
	// Raw contains the actual public key bytes.
	Raw []byte
}

// Types lists the supported schemes.
var Types = struct {
	Secp256k1 uint8
	BLS12381  uint8
}{
	Secp256k1: 0xc0,
	BLS12381:  0xb1,
}

var (
	ErrEmpty       = errors.New("empty pubkey")
	ErrUnknownType = errors.New("unknown pubkey type")
)

// Empty checks if the public key is uninitialized.
func (pk PubKey) Empty() bool {
	return len(pk.Raw) == 0 && pk.Type == 0
}

// Validate checks the raw length against the scheme.
func (pk PubKey) Validate() error {
	var want []int
	switch pk.Type {
	case Types.Secp256k1:
		want = []int{33, 65}
	case Types.BLS12381:
		want = []int{48}
	default:
		return fmt.Errorf("%w: 0x%x", ErrUnknownType, pk.Type)
	}
	for _, n := range want {
		if len(pk.Raw) == n {
			return nil
		}
	}
	return fmt.Errorf("pubkey of type 0x%x has %d bytes, want one of %v", pk.Type, len(pk.Raw), want)
}

// String returns the hexadecimal form, type byte first, prefixed with "0x".
func (pk PubKey) String() string {
	return "0x" + common.Bytes2Hex(pk.Bytes())
}

// Bytes returns [Type] + Raw.
func (pk PubKey) Bytes() []byte {
	return append([]byte{pk.Type}, pk.Raw...)
}

// Copy creates a deep copy of the PubKey.
func (pk PubKey) Copy() PubKey {
	return PubKey{
		Type: pk.Type,
		Raw:  common.CopyBytes(pk.Raw),
	}
}

// FromString parses a hex string, with or without "0x".
func FromString(str string) (PubKey, error) {
	return FromBytes(common.FromHex(str))
}

// FromBytes inverts Bytes.
func FromBytes(b []byte) (PubKey, error) {
	if len(b) == 0 {
		return PubKey{}, ErrEmpty
	}
	return PubKey{b[0], common.CopyBytes(b[1:])}, nil
}

// MarshalText implements encoding.TextMarshaler, so keys appear as hex in
// TOML genesis files and JSON output.
func (pk PubKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PubKey) UnmarshalText(input []byte) error {
	res, err := FromString(string(input))
	if err != nil {
		return err
	}
	*pk = res
	return nil
}
