// Package ier (inter-epoch records) defines the settlement record written
// when an epoch closes. Records are persisted in the state tree, so anyone
// holding a root can prove how an epoch's pool was paid out.
//
// Key concepts:
//   - EpochRecord: the closed epoch state plus the block that closed it
//   - Payout: one proposer's share, proportional to the blocks it proposed
//   - Skipped: a proposer with no payable identity, its share is carried
//   - Pool and Paid: credits available and credits actually distributed
//
// Usage:
//
//	rec := ier.EpochRecord{State: closed, EndHeight: height, Payouts: payouts}
//	rec.CarryOut = rec.Pool() - rec.Paid()
//	id := rec.Hash(stateHash)
//
// Whatever Pool leaves after Paid is carried into the next epoch.
package ier

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/inter/iblockproc"
)

// Payout is the share of one proposer.
type Payout struct {
	ProTxHash inter.ProTxHash
	Blocks    uint64
	Credits   uint64
	// Skipped is set when the proposer had no payable identity; its share
	// went to the carry instead.
	Skipped bool
}

// EpochRecord summarizes a closed epoch.
type EpochRecord struct {
	// State is the epoch state at close, proposer and vote counters included.
	State iblockproc.EpochState
	// EndHeight is the block that closed the epoch.
	EndHeight idx.Block
	EndTime   inter.Timestamp

	ProcessingPool uint64
	StorageBucket  uint64
	CarryIn        uint64
	Payouts        []Payout
	// CarryOut is the undistributed remainder handed to the next epoch.
	CarryOut uint64

	NextProtocolVersion uint32
}

// Pool is everything the epoch could distribute.
func (r EpochRecord) Pool() uint64 {
	return r.ProcessingPool + r.StorageBucket + r.CarryIn
}

// Paid sums the credits actually paid to proposers.
func (r EpochRecord) Paid() uint64 {
	var n uint64
	for _, p := range r.Payouts {
		if !p.Skipped {
			n += p.Credits
		}
	}
	return n
}

// Hash fingerprints the record; stateHash is the epoch state hash computed
// with the layout active at close.
func (r EpochRecord) Hash(stateHash hash.Hash) hash.Hash {
	parts := [][]byte{
		stateHash.Bytes(),
		bigendian.Uint64ToBytes(uint64(r.EndHeight)),
		r.EndTime.Bytes(),
		bigendian.Uint64ToBytes(r.ProcessingPool),
		bigendian.Uint64ToBytes(r.StorageBucket),
		bigendian.Uint64ToBytes(r.CarryIn),
		bigendian.Uint64ToBytes(r.CarryOut),
		bigendian.Uint32ToBytes(r.NextProtocolVersion),
	}
	for _, p := range r.Payouts {
		skipped := byte(0)
		if p.Skipped {
			skipped = 1
		}
		parts = append(parts, p.ProTxHash[:], bigendian.Uint64ToBytes(p.Blocks), bigendian.Uint64ToBytes(p.Credits), []byte{skipped})
	}
	return hash.Of(parts...)
}
