// Package ibr (inter-block records) defines the audit record written for
// every finalized block. The record is stored in the state tree next to the
// block's effects, so a light client holding an app hash can prove what a
// block accepted and charged.
//
// Key concepts:
//   - BlockRecord: height, time, epoch and proposer of a block
//   - TxHash: commitment to the raw transitions in block order, see CalcTxHash
//   - EpochStateHash: the epoch state after the block
//   - Accepted, Rejected: how many transitions executed or were refused
//   - Fees: processing and storage credits collected, refunds paid back
//
// Usage:
//
//	rec := ibr.BlockRecord{
//		Height:   idx.Block(info.Height),
//		Time:     info.Time,
//		TxHash:   ibr.CalcTxHash(rawTxs),
//		Accepted: accepted,
//	}
//	key := rec.Hash()
package ibr

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/dashpay/platform-sub039/inter"
)

// BlockRecord summarizes what a block did. The app hash is not part of it:
// the record is written inside the block, before the root is known.
type BlockRecord struct {
	Height   idx.Block
	Time     inter.Timestamp
	Epoch    uint16
	Proposer inter.ProTxHash
	// TxHash commits to the raw transitions in block order.
	TxHash hash.Hash
	// EpochStateHash is the epoch state after the block.
	EpochStateHash hash.Hash

	Accepted        uint32
	Rejected        uint32
	ProcessingFee   uint64
	StorageFee      uint64
	Refunds         uint64
	ProtocolVersion uint32
}

// Hash fingerprints the record.
func (br BlockRecord) Hash() hash.Hash {
	return hash.Of(
		bigendian.Uint64ToBytes(uint64(br.Height)),
		br.Time.Bytes(),
		bigendian.Uint16ToBytes(br.Epoch),
		br.Proposer[:],
		br.TxHash.Bytes(),
		br.EpochStateHash.Bytes(),
		bigendian.Uint32ToBytes(br.Accepted),
		bigendian.Uint32ToBytes(br.Rejected),
		bigendian.Uint64ToBytes(br.ProcessingFee),
		bigendian.Uint64ToBytes(br.StorageFee),
		bigendian.Uint64ToBytes(br.Refunds),
		bigendian.Uint32ToBytes(br.ProtocolVersion),
	)
}

// CalcTxHash commits to raw transitions in order.
func CalcTxHash(txs [][]byte) hash.Hash {
	if len(txs) == 0 {
		return hash.Zero
	}
	parts := make([][]byte, len(txs))
	for i, tx := range txs {
		h := hash.Of(tx)
		parts[i] = h.Bytes()
	}
	return hash.Of(parts...)
}
