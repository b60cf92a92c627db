// Package nonce guards identities against transition replay.
//
// Every identity keeps one nonce for identity-level transitions and one per
// data contract it has touched. A claimed nonce is accepted when it is above
// the stored one and no further than the forward window, or when it is one of
// the nonces skipped inside the window and not used since. The accepted value
// is returned as a Bump and written by the action that consumes it.
//
// A stored nonce word keeps the highest accepted nonce in its low 40 bits.
// The upper 24 bits mark which of the nonces just below it are still unused:
// bit i stands for last-1-i.
package nonce

import (
	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

// Reader exposes the stored nonces.
type Reader interface {
	IdentityNonce(tx state.Transaction, id inter.Identifier) (uint64, error)
	IdentityContractNonce(tx state.Transaction, id, contract inter.Identifier) (uint64, error)
}

const (
	valueMask   = platform.MaxNonceValue
	missingBits = 24
	missingMask = 1<<missingBits - 1
)

// Split decodes a stored nonce word into the highest accepted nonce and the
// set of unused nonces below it.
func Split(stored uint64) (last uint64, missing uint32) {
	return stored & valueMask, uint32(stored >> 40)
}

// Last is the highest accepted nonce of a stored word.
func Last(stored uint64) uint64 {
	return stored & valueMask
}

func join(last uint64, missing uint32) uint64 {
	return last | uint64(missing&missingMask)<<40
}

// Bump is a planned nonce write.
type Bump struct {
	IdentityID inter.Identifier
	// Contract is set for identity-contract nonces.
	Contract *inter.Identifier
	// Nonce is the accepted nonce.
	Nonce uint64
	// Stored is the word written back. Zero stands for Nonce with no unused
	// nonces below it.
	Stored uint64
}

func (b Bump) word() uint64 {
	if b.Stored != 0 {
		return b.Stored
	}
	return b.Nonce
}

// Op plans the write of b.
func (b Bump) Op() state.Op {
	if b.Contract != nil {
		return drive.SetContractNonceOp(b.IdentityID, *b.Contract, b.word())
	}
	return drive.SetNonceOp(b.IdentityID, b.word())
}

// checkFn returns the stored word after accepting claimed, or the rejection
// code.
type checkFn func(stored, claimed, window uint64) (uint64, consensus.Code)

var checks = map[platform.FeatureVersion]checkFn{
	0: checkV0,
}

func checkV0(stored, claimed, window uint64) (uint64, consensus.Code) {
	last, missing := Split(stored)
	if window > missingBits {
		window = missingBits
	}
	switch {
	case claimed > last:
		gap := claimed - last
		if gap > window {
			return 0, consensus.NonceTooFarInFuture
		}
		// last+1 .. claimed-1 become unused; older marks move up
		missing = missing<<gap | (1<<(gap-1) - 1)
		return join(claimed, missing), 0
	case claimed == last:
		return 0, consensus.NonceAlreadyUsed
	}
	below := last - claimed
	if below > window {
		return 0, consensus.NonceAlreadyUsed
	}
	bit := uint32(1) << (below - 1)
	if missing&bit == 0 {
		return 0, consensus.NonceAlreadyUsed
	}
	return join(last, missing&^bit), 0
}

// Validator checks claimed nonces against stored ones.
type Validator struct {
	reader Reader
	check  checkFn
	window uint64
}

// New binds the nonce rules of pv.
func New(reader Reader, pv *platform.PlatformVersion) (*Validator, error) {
	check, err := platform.Dispatch("nonce.validate", pv.Nonce.Validation, checks)
	if err != nil {
		return nil, err
	}
	return &Validator{reader: reader, check: check, window: pv.Nonce.ForwardWindow}, nil
}

// ValidateIdentityNonce checks claimed against the identity nonce of id.
// The returned error is a storage failure only.
func (v *Validator) ValidateIdentityNonce(tx state.Transaction, id inter.Identifier, claimed uint64) (consensus.ValidationResult[Bump], error) {
	stored, err := v.reader.IdentityNonce(tx, id)
	if err != nil {
		return consensus.ValidationResult[Bump]{}, err
	}
	return v.Check(Bump{IdentityID: id, Nonce: claimed}, stored), nil
}

// ValidateIdentityContractNonce checks claimed against the nonce id keeps
// for contract.
func (v *Validator) ValidateIdentityContractNonce(tx state.Transaction, id, contract inter.Identifier, claimed uint64) (consensus.ValidationResult[Bump], error) {
	stored, err := v.reader.IdentityContractNonce(tx, id, contract)
	if err != nil {
		return consensus.ValidationResult[Bump]{}, err
	}
	return v.Check(Bump{IdentityID: id, Contract: &contract, Nonce: claimed}, stored), nil
}

// Check validates a planned bump against a stored word without reading the
// store. Batches use it to chain several nonces of one contract, passing the
// previous bump's Stored.
func (v *Validator) Check(b Bump, stored uint64) consensus.ValidationResult[Bump] {
	next, code := v.check(stored, b.Nonce, v.window)
	if code == 0 {
		b.Stored = next
		return consensus.Valid(b)
	}
	params := []consensus.Param{
		consensus.ID("identity", b.IdentityID),
		consensus.Uint("claimed", b.Nonce),
		consensus.Uint("last", Last(stored)),
	}
	if b.Contract != nil {
		params = append(params, consensus.ID("contract", *b.Contract))
	}
	return consensus.Invalid[Bump](consensus.New(code, params...))
}

// CheckBounds rejects nonces using the reserved upper bits. It runs before
// any state access.
func CheckBounds(claimed uint64, pv *platform.PlatformVersion) *consensus.Error {
	if claimed == 0 || claimed > pv.Nonce.MaxValue {
		return consensus.New(consensus.NonceOutOfBounds,
			consensus.Uint("claimed", claimed),
			consensus.Uint("max", pv.Nonce.MaxValue))
	}
	return nil
}
