// Package transition defines the state transitions clients submit and
// their canonical wire encoding.
//
// A transition is a two-level variant: the Kind selects the operation and a
// feature version selects the layout of its body. Every concrete layout
// implements StateTransition.
//
// Wire layout: kind (u8), feature version (u16), body. Signatures are part
// of the body; SignableBytes is the same encoding with every signature left
// out.
package transition

import (
	"fmt"

	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
)

// Kind is the first-level tag of a transition.
type Kind uint8

const (
	KindIdentityCreate Kind = iota
	KindIdentityTopUp
	KindIdentityUpdate
	KindCreditTransfer
	KindCreditWithdrawal
	KindContractCreate
	KindContractUpdate
	KindDocumentsBatch
	KindTokensBatch

	kindCount
)

var kindNames = [...]string{
	KindIdentityCreate:   "identityCreate",
	KindIdentityTopUp:    "identityTopUp",
	KindIdentityUpdate:   "identityUpdate",
	KindCreditTransfer:   "identityCreditTransfer",
	KindCreditWithdrawal: "identityCreditWithdrawal",
	KindContractCreate:   "dataContractCreate",
	KindContractUpdate:   "dataContractUpdate",
	KindDocumentsBatch:   "documentsBatch",
	KindTokensBatch:      "tokensBatch",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) Valid() bool { return k < kindCount }

// Kinds lists every kind in tag order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// StateTransition is implemented by every concrete transition layout.
type StateTransition interface {
	Kind() Kind
	FeatureVersion() platform.FeatureVersion
	// OwnerID is the identity paying for and authorizing the transition.
	OwnerID() inter.Identifier
	SignableBytes() ([]byte, error)
	Signature() []byte
	SetSignature(sig []byte)
	SignaturePublicKeyID() uint32
	UserFeeIncrease() uint16
}

// IdentityNonced transitions carry an identity nonce.
type IdentityNonced interface {
	IdentityNonce() uint64
}

// ContractNonced transitions carry one identity-contract nonce.
type ContractNonced interface {
	ContractNonce() (contract inter.Identifier, nonce uint64)
}

// Signed holds the fields shared by transitions signed with an identity key.
type Signed struct {
	KeyID       uint32
	FeeIncrease uint16
	Sig         []byte
}

func (s *Signed) Signature() []byte            { return s.Sig }
func (s *Signed) SetSignature(sig []byte)      { s.Sig = sig }
func (s *Signed) SignaturePublicKeyID() uint32 { return s.KeyID }
func (s *Signed) UserFeeIncrease() uint16      { return s.FeeIncrease }
