// Package dpp is the platform data model: identities and their keys, data
// contracts with their document types and tokens, documents, asset lock
// proofs and the storage flags attached to prepaid elements.
package dpp

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyType is the signature scheme of a public key.
type KeyType uint8

const (
	KeyTypeECDSASecp256k1 KeyType = iota
	KeyTypeBLS12381
	KeyTypeECDSAHash160
)

// Purpose restricts which transitions a key may sign.
type Purpose uint8

const (
	PurposeAuthentication Purpose = iota
	PurposeEncryption
	PurposeDecryption
	PurposeTransfer
	PurposeWithdraw
)

// SecurityLevel orders keys by authority. Lower is stronger.
type SecurityLevel uint8

const (
	SecurityLevelMaster SecurityLevel = iota
	SecurityLevelCritical
	SecurityLevelHigh
	SecurityLevelMedium
)

const (
	secp256k1KeySize = 33
	bls12381KeySize  = 48
	hash160KeySize   = 20
)

var (
	ErrInvalidKeyData = errors.New("invalid public key data")
	ErrUnknownKeyType = errors.New("unknown key type")
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeECDSASecp256k1:
		return "ECDSA_SECP256K1"
	case KeyTypeBLS12381:
		return "BLS12_381"
	case KeyTypeECDSAHash160:
		return "ECDSA_HASH160"
	}
	return fmt.Sprintf("KeyType(%d)", uint8(t))
}

func (p Purpose) String() string {
	switch p {
	case PurposeAuthentication:
		return "AUTHENTICATION"
	case PurposeEncryption:
		return "ENCRYPTION"
	case PurposeDecryption:
		return "DECRYPTION"
	case PurposeTransfer:
		return "TRANSFER"
	case PurposeWithdraw:
		return "WITHDRAW"
	}
	return fmt.Sprintf("Purpose(%d)", uint8(p))
}

func (l SecurityLevel) String() string {
	switch l {
	case SecurityLevelMaster:
		return "MASTER"
	case SecurityLevelCritical:
		return "CRITICAL"
	case SecurityLevelHigh:
		return "HIGH"
	case SecurityLevelMedium:
		return "MEDIUM"
	}
	return fmt.Sprintf("SecurityLevel(%d)", uint8(l))
}

// IdentityPublicKey is a key registered on an identity.
type IdentityPublicKey struct {
	ID            uint32
	Type          KeyType
	Purpose       Purpose
	SecurityLevel SecurityLevel
	Data          []byte
	ReadOnly      bool
	// DisabledAt is the block time the key was disabled, 0 while active.
	DisabledAt uint64
}

func (k *IdentityPublicKey) IsDisabled() bool {
	return k.DisabledAt != 0
}

// ValidateData checks the key data length and, for secp256k1, that the
// bytes are a point on the curve.
func (k *IdentityPublicKey) ValidateData() error {
	switch k.Type {
	case KeyTypeECDSASecp256k1:
		if len(k.Data) != secp256k1KeySize {
			return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrInvalidKeyData, k.Type, secp256k1KeySize, len(k.Data))
		}
		if _, err := crypto.DecompressPubkey(k.Data); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidKeyData, err)
		}
	case KeyTypeBLS12381:
		if len(k.Data) != bls12381KeySize {
			return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrInvalidKeyData, k.Type, bls12381KeySize, len(k.Data))
		}
	case KeyTypeECDSAHash160:
		if len(k.Data) != hash160KeySize {
			return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrInvalidKeyData, k.Type, hash160KeySize, len(k.Data))
		}
	default:
		return ErrUnknownKeyType
	}
	return nil
}

// Hash is the 20-byte key hash used by the unique key-hash index.
func (k *IdentityPublicKey) Hash() [20]byte {
	var out [20]byte
	if k.Type == KeyTypeECDSAHash160 {
		copy(out[:], k.Data)
		return out
	}
	copy(out[:], btcutil.Hash160(k.Data))
	return out
}

func (k IdentityPublicKey) Copy() IdentityPublicKey {
	cp := k
	cp.Data = append([]byte(nil), k.Data...)
	return cp
}
