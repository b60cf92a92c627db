// Package drivertype defines how masternodes and the quorum derived from
// them are represented between the validator set coordinator and the BFT
// engine.
package drivertype

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/Fantom-foundation/lachesis-base/inter/pos"

	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/inter/validatorpk"
)

var (
	// BannedBit marks a masternode excluded from quorums by the core chain
	// (PoSe ban).
	BannedBit = uint64(1 << 7)

	// OkStatus represents a masternode with no adverse status bits set.
	OkStatus = uint64(0)
)

// Masternode is a registered masternode as announced by the core chain.
type Masternode struct {
	ProTxHash inter.ProTxHash
	// Weight is the voting power the masternode brings to a quorum.
	Weight pos.Weight
	PubKey validatorpk.PubKey
	Status uint64
}

// Eligible reports whether the masternode may join a quorum.
func (m Masternode) Eligible() bool {
	return m.Status&BannedBit == 0 && m.Weight > 0 && !m.PubKey.Empty()
}

// Validator is one quorum member as handed to the BFT engine.
type Validator struct {
	ProTxHash   inter.ProTxHash
	ValidatorID idx.ValidatorID
	Power       pos.Weight
	PubKey      validatorpk.PubKey
}

// ValidatorSetUpdate replaces the active quorum. Validators are ordered by
// power, highest first, ties broken by ProTxHash.
type ValidatorSetUpdate struct {
	QuorumHash hash.Hash
	Validators []Validator
}
