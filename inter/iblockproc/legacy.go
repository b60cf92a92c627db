package iblockproc

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/dashpay/platform-sub039/inter"
)

// EpochStateV0 is the layout hashed before vote counters existed. It is
// never stored; it only exists to reproduce old state hashes.
type EpochStateV0 struct {
	Epoch           uint16
	EpochStart      inter.Timestamp
	PrevEpochStart  inter.Timestamp
	StartHeight     idx.Block
	ProtocolVersion uint32
	Proposers       []ProposerBlocks
}
