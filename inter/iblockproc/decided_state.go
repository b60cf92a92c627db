// Package iblockproc holds the per-epoch state the epoch manager advances
// block by block: the epoch boundaries, the blocks each masternode proposed
// and the protocol-version votes they cast. The state is hashed into every
// block record, so its encoding is consensus critical.
//
// Key concepts:
//   - EpochState: index, start height and start time of the running epoch
//   - ProposerBlocks: blocks proposed per masternode, the basis of payouts
//   - VersionVotes: protocol versions announced by proposers this epoch
//   - EpochStateV0: the layout hashed by state hash version 0
//
// Usage:
//
//	es.CountProposer(info.Proposer)
//	es.CountVote(info.ProposedAppVersion)
//	h, err := es.Hash(pv.Epochs.StateHash)
//
// Copy before handing the state to another goroutine; the counters are
// slices and are shared otherwise.
package iblockproc

import (
	"crypto/sha256"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
)

// ProposerBlocks counts the blocks one masternode proposed in the epoch.
type ProposerBlocks struct {
	ProTxHash inter.ProTxHash
	Blocks    uint64
}

// VersionVotes counts the blocks whose proposer voted for Version.
type VersionVotes struct {
	Version uint32
	Blocks  uint64
}

// EpochState is the state of the running epoch.
// Proposers are kept ordered by ProTxHash and Votes by Version, so that the
// payout loop and the vote tally iterate deterministically.
type EpochState struct {
	Epoch          uint16
	EpochStart     inter.Timestamp
	PrevEpochStart inter.Timestamp
	// StartHeight is the first block of the epoch.
	StartHeight idx.Block
	// ProtocolVersion is active for every block of the epoch.
	ProtocolVersion uint32

	Proposers []ProposerBlocks
	Votes     []VersionVotes
}

// Duration is the length of the previous epoch.
func (es EpochState) Duration() inter.Timestamp {
	return es.EpochStart - es.PrevEpochStart
}

// Blocks is the number of blocks proposed so far in the epoch.
func (es EpochState) Blocks() uint64 {
	var n uint64
	for _, p := range es.Proposers {
		n += p.Blocks
	}
	return n
}

// CountProposer adds one block to proposer, keeping Proposers ordered.
func (es *EpochState) CountProposer(proposer inter.ProTxHash) {
	i := sort.Search(len(es.Proposers), func(i int) bool {
		return string(es.Proposers[i].ProTxHash[:]) >= string(proposer[:])
	})
	if i < len(es.Proposers) && es.Proposers[i].ProTxHash == proposer {
		es.Proposers[i].Blocks++
		return
	}
	es.Proposers = append(es.Proposers, ProposerBlocks{})
	copy(es.Proposers[i+1:], es.Proposers[i:])
	es.Proposers[i] = ProposerBlocks{ProTxHash: proposer, Blocks: 1}
}

// CountVote adds one block to version, keeping Votes ordered.
func (es *EpochState) CountVote(version uint32) {
	i := sort.Search(len(es.Votes), func(i int) bool { return es.Votes[i].Version >= version })
	if i < len(es.Votes) && es.Votes[i].Version == version {
		es.Votes[i].Blocks++
		return
	}
	es.Votes = append(es.Votes, VersionVotes{})
	copy(es.Votes[i+1:], es.Votes[i:])
	es.Votes[i] = VersionVotes{Version: version, Blocks: 1}
}

// Copy creates a deep copy so a block attempt can be discarded without
// touching the committed state.
func (es EpochState) Copy() EpochState {
	cp := es
	cp.Proposers = make([]ProposerBlocks, len(es.Proposers))
	copy(cp.Proposers, es.Proposers)
	cp.Votes = make([]VersionVotes, len(es.Votes))
	copy(cp.Votes, es.Votes)
	return cp
}

// Hash fingerprints the state with the layout selected by version.
// Version 0 hashes the legacy layout without vote counters, so networks
// that started before voting keep their historical block records valid.
func (es EpochState) Hash(version platform.FeatureVersion) (hash.Hash, error) {
	var hashed interface{}
	switch version {
	case 0:
		hashed = &EpochStateV0{
			Epoch:           es.Epoch,
			EpochStart:      es.EpochStart,
			PrevEpochStart:  es.PrevEpochStart,
			StartHeight:     es.StartHeight,
			ProtocolVersion: es.ProtocolVersion,
			Proposers:       es.Proposers,
		}
	case 1:
		hashed = &es
	default:
		return hash.Zero, &platform.UnknownVersionMismatch{
			Method:   "epoch.state_hash",
			Known:    []platform.FeatureVersion{0, 1},
			Received: version,
		}
	}
	hasher := sha256.New()
	if err := rlp.Encode(hasher, hashed); err != nil {
		return hash.Zero, err
	}
	return hash.BytesToHash(hasher.Sum(nil)), nil
}
