package transition

import (
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
)

// KeyInCreation is a key being added together with a signature proving
// possession of its private part.
type KeyInCreation struct {
	Key       dpp.IdentityPublicKey
	Signature []byte
}

// IdentityCreateV0 creates an identity funded by an asset lock. The
// transition is signed by the asset lock's credit key.
type IdentityCreateV0 struct {
	AssetLock  dpp.AssetLockProof
	PublicKeys []KeyInCreation
	Signed
}

func (t *IdentityCreateV0) Kind() Kind                              { return KindIdentityCreate }
func (t *IdentityCreateV0) FeatureVersion() platform.FeatureVersion { return 0 }
func (t *IdentityCreateV0) OwnerID() inter.Identifier               { return t.AssetLock.IdentityID() }
func (t *IdentityCreateV0) SignableBytes() ([]byte, error)          { return signable(t) }

// IdentityTopUpV0 adds asset-locked funds to an existing identity.
type IdentityTopUpV0 struct {
	IdentityID inter.Identifier
	AssetLock  dpp.AssetLockProof
	Signed
}

func (t *IdentityTopUpV0) Kind() Kind                              { return KindIdentityTopUp }
func (t *IdentityTopUpV0) FeatureVersion() platform.FeatureVersion { return 0 }
func (t *IdentityTopUpV0) OwnerID() inter.Identifier               { return t.IdentityID }
func (t *IdentityTopUpV0) SignableBytes() ([]byte, error)          { return signable(t) }

// IdentityUpdateV0 adds and disables keys. Revision must be the next one.
type IdentityUpdateV0 struct {
	IdentityID  inter.Identifier
	Revision    uint64
	Nonce       uint64
	AddKeys     []KeyInCreation
	DisableKeys []uint32
	Signed
}

func (t *IdentityUpdateV0) Kind() Kind                              { return KindIdentityUpdate }
func (t *IdentityUpdateV0) FeatureVersion() platform.FeatureVersion { return 0 }
func (t *IdentityUpdateV0) OwnerID() inter.Identifier               { return t.IdentityID }
func (t *IdentityUpdateV0) SignableBytes() ([]byte, error)          { return signable(t) }
func (t *IdentityUpdateV0) IdentityNonce() uint64                   { return t.Nonce }

// CreditTransferV0 moves credits between identities.
type CreditTransferV0 struct {
	IdentityID  inter.Identifier
	RecipientID inter.Identifier
	Amount      uint64
	Nonce       uint64
	Signed
}

func (t *CreditTransferV0) Kind() Kind                              { return KindCreditTransfer }
func (t *CreditTransferV0) FeatureVersion() platform.FeatureVersion { return 0 }
func (t *CreditTransferV0) OwnerID() inter.Identifier               { return t.IdentityID }
func (t *CreditTransferV0) SignableBytes() ([]byte, error)          { return signable(t) }
func (t *CreditTransferV0) IdentityNonce() uint64                   { return t.Nonce }

// CreditWithdrawalV0 queues credits for payout on the core chain.
type CreditWithdrawalV0 struct {
	IdentityID     inter.Identifier
	Amount         uint64
	CoreFeePerByte uint32
	OutputScript   []byte
	Nonce          uint64
	Signed
}

func (t *CreditWithdrawalV0) Kind() Kind                              { return KindCreditWithdrawal }
func (t *CreditWithdrawalV0) FeatureVersion() platform.FeatureVersion { return 0 }
func (t *CreditWithdrawalV0) OwnerID() inter.Identifier               { return t.IdentityID }
func (t *CreditWithdrawalV0) SignableBytes() ([]byte, error)          { return signable(t) }
func (t *CreditWithdrawalV0) IdentityNonce() uint64                   { return t.Nonce }
