package inter

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// ProTxHash identifies a masternode by its registration transaction.
type ProTxHash [32]byte

// BlockInfo is the block metadata every component sees. It is built once per
// block attempt and never mutated.
type BlockInfo struct {
	Height                idx.Block
	Time                  Timestamp
	PreviousTime          Timestamp
	CoreChainLockedHeight uint32
	ProposerProTxHash     ProTxHash
	Epoch                 Epoch
	// ProposedAppVersion is the protocol version the proposer votes for.
	ProposedAppVersion uint32
}

// IsGenesis reports whether this is the first block after InitChain.
func (b BlockInfo) IsGenesis() bool {
	return b.Height <= 1
}
