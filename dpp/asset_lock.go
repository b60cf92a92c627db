package dpp

import (
	"errors"

	"github.com/dashpay/platform-sub039/inter"
)

// AssetLockType distinguishes how a core-chain lock is proven.
type AssetLockType uint8

const (
	AssetLockInstant AssetLockType = iota
	AssetLockChain
)

// OutPointLength is a 32-byte transaction hash followed by a 4-byte output index.
const OutPointLength = 36

var (
	ErrAssetLockZeroOutPoint  = errors.New("asset lock outpoint is empty")
	ErrAssetLockZeroAmount    = errors.New("asset lock amount is zero")
	ErrAssetLockNoInstantLock = errors.New("instant asset lock without lock message")
	ErrAssetLockNoHeight      = errors.New("chain asset lock without core height")
	ErrAssetLockUnknownType   = errors.New("unknown asset lock type")
	ErrAssetLockNoKeyHash     = errors.New("asset lock without credit key hash")
)

// AssetLockProof proves core-chain funds were locked to fund an identity.
// Amount is in duffs.
type AssetLockProof struct {
	Type                  AssetLockType
	OutPoint              [OutPointLength]byte
	Amount                uint64
	CreditPubKeyHash      [20]byte
	CoreChainLockedHeight uint32
	InstantLock           []byte
}

// Validate checks the proof is well formed. It does not contact the core chain.
func (p *AssetLockProof) Validate() error {
	switch p.Type {
	case AssetLockInstant:
		if len(p.InstantLock) == 0 {
			return ErrAssetLockNoInstantLock
		}
	case AssetLockChain:
		if p.CoreChainLockedHeight == 0 {
			return ErrAssetLockNoHeight
		}
	default:
		return ErrAssetLockUnknownType
	}
	if p.OutPoint == ([OutPointLength]byte{}) {
		return ErrAssetLockZeroOutPoint
	}
	if p.Amount == 0 {
		return ErrAssetLockZeroAmount
	}
	if p.CreditPubKeyHash == ([20]byte{}) {
		return ErrAssetLockNoKeyHash
	}
	return nil
}

// IdentityID is the id of the identity created from this lock.
func (p *AssetLockProof) IdentityID() inter.Identifier {
	return inter.DeriveIdentifier(p.OutPoint[:])
}
