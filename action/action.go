// Package action holds fully resolved transitions and applies them.
//
// An Action is what validation hands to the executor: every entity it
// touches has been fetched and checked, and every value it writes is final.
// Building store operations from an action reads nothing but balances and
// append counters, so estimating and applying the same action price
// identically.
package action

import (
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/nonce"
	"github.com/dashpay/platform-sub039/transition"
)

// FeeInputs are the priced parts of a transition that are not store work.
type FeeInputs struct {
	InputBytes      uint64
	SignatureCost   uint64
	BaseFee         uint64
	UserFeeIncrease uint16
}

// Action is a validated transition ready to execute.
type Action interface {
	Kind() transition.Kind
	// Payer is the identity charged for the action.
	Payer() inter.Identifier
	Fees() FeeInputs
}

type base struct {
	Owner inter.Identifier
	Fee   FeeInputs
}

func (b *base) Payer() inter.Identifier { return b.Owner }
func (b *base) Fees() FeeInputs         { return b.Fee }

// IdentityCreate registers an identity funded by an asset lock.
type IdentityCreate struct {
	base
	Identity dpp.Identity
	OutPoint [dpp.OutPointLength]byte
	// Credits is the locked amount converted to credits.
	Credits uint64
}

func NewIdentityCreate(identity dpp.Identity, outPoint [dpp.OutPointLength]byte, credits uint64, fee FeeInputs) *IdentityCreate {
	return &IdentityCreate{base: base{Owner: identity.ID, Fee: fee}, Identity: identity, OutPoint: outPoint, Credits: credits}
}

func (a *IdentityCreate) Kind() transition.Kind { return transition.KindIdentityCreate }

// IdentityTopUp credits an asset lock to an existing identity.
type IdentityTopUp struct {
	base
	OutPoint [dpp.OutPointLength]byte
	Credits  uint64
}

func NewIdentityTopUp(id inter.Identifier, outPoint [dpp.OutPointLength]byte, credits uint64, fee FeeInputs) *IdentityTopUp {
	return &IdentityTopUp{base: base{Owner: id, Fee: fee}, OutPoint: outPoint, Credits: credits}
}

func (a *IdentityTopUp) Kind() transition.Kind { return transition.KindIdentityTopUp }

// IdentityUpdate adds keys and rewrites disabled ones.
type IdentityUpdate struct {
	base
	Revision uint64
	AddKeys  []dpp.IdentityPublicKey
	// Disabled holds the disabled keys as they will be stored.
	Disabled []dpp.IdentityPublicKey
	Bump     nonce.Bump
}

func NewIdentityUpdate(id inter.Identifier, revision uint64, add, disabled []dpp.IdentityPublicKey, bump nonce.Bump, fee FeeInputs) *IdentityUpdate {
	return &IdentityUpdate{base: base{Owner: id, Fee: fee}, Revision: revision, AddKeys: add, Disabled: disabled, Bump: bump}
}

func (a *IdentityUpdate) Kind() transition.Kind { return transition.KindIdentityUpdate }

// CreditTransfer moves credits between identities.
type CreditTransfer struct {
	base
	Recipient inter.Identifier
	Amount    uint64
	Bump      nonce.Bump
}

func NewCreditTransfer(from, to inter.Identifier, amount uint64, bump nonce.Bump, fee FeeInputs) *CreditTransfer {
	return &CreditTransfer{base: base{Owner: from, Fee: fee}, Recipient: to, Amount: amount, Bump: bump}
}

func (a *CreditTransfer) Kind() transition.Kind { return transition.KindCreditTransfer }

// CreditWithdrawal removes credits from the platform into the withdrawal queue.
type CreditWithdrawal struct {
	base
	Amount         uint64
	CoreFeePerByte uint32
	OutputScript   []byte
	Bump           nonce.Bump
}

func NewCreditWithdrawal(id inter.Identifier, amount uint64, coreFeePerByte uint32, script []byte, bump nonce.Bump, fee FeeInputs) *CreditWithdrawal {
	return &CreditWithdrawal{base: base{Owner: id, Fee: fee}, Amount: amount, CoreFeePerByte: coreFeePerByte, OutputScript: script, Bump: bump}
}

func (a *CreditWithdrawal) Kind() transition.Kind { return transition.KindCreditWithdrawal }

// ContractCreate stores a new data contract.
type ContractCreate struct {
	base
	Contract *dpp.DataContract
	Bump     nonce.Bump
}

func NewContractCreate(c *dpp.DataContract, bump nonce.Bump, fee FeeInputs) *ContractCreate {
	return &ContractCreate{base: base{Owner: c.OwnerID, Fee: fee}, Contract: c, Bump: bump}
}

func (a *ContractCreate) Kind() transition.Kind { return transition.KindContractCreate }

// ContractUpdate replaces a data contract with its next version.
type ContractUpdate struct {
	base
	Contract *dpp.DataContract
	Bump     nonce.Bump
}

func NewContractUpdate(c *dpp.DataContract, bump nonce.Bump, fee FeeInputs) *ContractUpdate {
	return &ContractUpdate{base: base{Owner: c.OwnerID, Fee: fee}, Contract: c, Bump: bump}
}

func (a *ContractUpdate) Kind() transition.Kind { return transition.KindContractUpdate }

// WriteKind says how a document write touches the store.
type WriteKind uint8

const (
	WriteInsert WriteKind = iota
	WriteReplace
	WriteDelete
)

// DocumentWrite is one resolved document mutation.
type DocumentWrite struct {
	Kind     WriteKind
	Contract inter.Identifier
	Type     *dpp.DocumentType
	// Document is the new state; for deletes it is the removed document.
	Document *dpp.Document
	// Previous is the stored document for replace.
	Previous *dpp.Document
}

// Payment moves credits from the batch owner, e.g. a document purchase.
type Payment struct {
	To     inter.Identifier
	Amount uint64
}

// DocumentsBatch applies resolved document writes.
type DocumentsBatch struct {
	base
	Writes   []DocumentWrite
	Payments []Payment
	History  []dpp.HistoryRecord
	Bumps    []nonce.Bump
}

func NewDocumentsBatch(owner inter.Identifier, fee FeeInputs) *DocumentsBatch {
	return &DocumentsBatch{base: base{Owner: owner, Fee: fee}}
}

func (a *DocumentsBatch) Kind() transition.Kind { return transition.KindDocumentsBatch }

// TokenBalance is the final balance of one holder.
type TokenBalance struct {
	Token   inter.Identifier
	Holder  inter.Identifier
	Balance uint64
	Existed bool
}

// TokenSupply is the final supply of one token.
type TokenSupply struct {
	Token  inter.Identifier
	Supply uint64
}

// TokenFreeze is the final frozen state of one account.
type TokenFreeze struct {
	Token  inter.Identifier
	Holder inter.Identifier
	Frozen bool
}

// TokensBatch writes the final token state a batch produces.
type TokensBatch struct {
	base
	Balances []TokenBalance
	Supplies []TokenSupply
	Freezes  []TokenFreeze
	History  []dpp.HistoryRecord
	Bumps    []nonce.Bump
}

func NewTokensBatch(owner inter.Identifier, fee FeeInputs) *TokensBatch {
	return &TokensBatch{base: base{Owner: owner, Fee: fee}}
}

func (a *TokensBatch) Kind() transition.Kind { return transition.KindTokensBatch }

// BumpNonce is the degraded action of a rejected billable transition: it
// only consumes the nonce and charges Charge credits, clamped to the
// balance.
type BumpNonce struct {
	base
	Original transition.Kind
	Bumps    []nonce.Bump
	Charge   uint64
}

func (a *BumpNonce) Kind() transition.Kind { return a.Original }

// BumpIdentityNonce consumes an identity nonce.
type BumpIdentityNonce struct{ BumpNonce }

// BumpIdentityContractNonce consumes identity-contract nonces.
type BumpIdentityContractNonce struct{ BumpNonce }

// NewBump returns the degraded action for bumps; contract nonces select
// BumpIdentityContractNonce.
func NewBump(original transition.Kind, owner inter.Identifier, bumps []nonce.Bump, charge uint64) Action {
	b := BumpNonce{base: base{Owner: owner}, Original: original, Bumps: bumps, Charge: charge}
	if len(bumps) > 0 && bumps[0].Contract != nil {
		return &BumpIdentityContractNonce{b}
	}
	return &BumpIdentityNonce{b}
}

// IsBump reports whether a is a degraded nonce bump.
func IsBump(a Action) bool {
	switch a.(type) {
	case *BumpIdentityNonce, *BumpIdentityContractNonce:
		return true
	}
	return false
}
