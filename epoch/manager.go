// Package epoch advances the epoch state block by block. It accumulates
// processing fees, counts proposed blocks and protocol-version votes, and
// when an epoch has lasted long enough it pays the epoch's pool out to the
// proposers and opens the next one.
package epoch

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/sirupsen/logrus"

	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/inter/iblockproc"
	"github.com/dashpay/platform-sub039/inter/ier"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/utils/checked"
)

// Outcome is what a block did to the epoch.
type Outcome struct {
	// State is the epoch state after the block; a new epoch if Closed is set.
	State     iblockproc.EpochState
	StateHash hash.Hash
	// Closed is the settlement of the epoch this block ended.
	Closed *ier.EpochRecord
}

// ProtocolVersion is the version the next block runs.
func (o Outcome) ProtocolVersion() uint32 {
	return o.State.ProtocolVersion
}

// Manager owns the epoch subtree of the state.
type Manager struct {
	drive *drive.Drive
	table *platform.VersionTable
	log   logrus.FieldLogger
}

func NewManager(d *drive.Drive, table *platform.VersionTable, log logrus.FieldLogger) *Manager {
	return &Manager{drive: d, table: table, log: log}
}

type processFn func(m *Manager, tx state.Transaction, info inter.BlockInfo, fees inter.BlockFees, pv *platform.PlatformVersion) (Outcome, error)

var processors = map[platform.FeatureVersion]processFn{
	0: (*Manager).processV0,
}

// Init opens epoch 0 at genesis.
func (m *Manager) Init(tx state.Transaction, genesisTime inter.Timestamp, protocol uint32) (*iblockproc.EpochState, error) {
	if !m.table.Has(protocol) {
		return nil, &platform.UnknownProtocolVersion{Version: protocol, Known: m.table.Versions()}
	}
	es := &iblockproc.EpochState{
		EpochStart:      genesisTime,
		PrevEpochStart:  genesisTime,
		StartHeight:     1,
		ProtocolVersion: protocol,
	}
	op, err := drive.SetEpochStateOp(es)
	if err != nil {
		return nil, err
	}
	if _, err := m.drive.Apply(tx, []state.Op{op}); err != nil {
		return nil, err
	}
	return es, nil
}

// Current returns the running epoch. It is an error to call it before Init.
func (m *Manager) Current(tx state.Transaction) (*iblockproc.EpochState, error) {
	es, err := m.drive.EpochState(tx)
	if err != nil {
		return nil, err
	}
	if es == nil {
		return nil, platform.Corrupted("epoch state missing")
	}
	return es, nil
}

// ProcessBlock books a finalized block into the running epoch and closes it
// once it has lasted the configured length. The block that crosses the
// boundary still belongs to the closing epoch.
func (m *Manager) ProcessBlock(tx state.Transaction, info inter.BlockInfo, fees inter.BlockFees, pv *platform.PlatformVersion) (Outcome, error) {
	process, err := platform.Dispatch("epoch.manager", pv.Epochs.Manager, processors)
	if err != nil {
		return Outcome{}, err
	}
	return process(m, tx, info, fees, pv)
}

func (m *Manager) processV0(tx state.Transaction, info inter.BlockInfo, fees inter.BlockFees, pv *platform.PlatformVersion) (Outcome, error) {
	cur, err := m.Current(tx)
	if err != nil {
		return Outcome{}, err
	}
	if cur.Epoch != info.Epoch.Index {
		return Outcome{}, platform.Corrupted("block %d runs in epoch %d, state is in %d", info.Height, info.Epoch.Index, cur.Epoch)
	}
	es := cur.Copy()

	pool, err := m.drive.ProcessingPool(tx)
	if err != nil {
		return Outcome{}, err
	}
	if pool, err = checked.Add(pool, fees.ProcessingFee); err != nil {
		return Outcome{}, err
	}
	es.CountProposer(info.ProposerProTxHash)
	if info.ProposedAppVersion != 0 {
		es.CountVote(info.ProposedAppVersion)
	}

	var (
		ops []state.Op
		out Outcome
	)
	if info.Time >= es.EpochStart && info.Time-es.EpochStart > pv.Epochs.Length {
		rec, closeOps, err := m.close(tx, es, pool, info, pv)
		if err != nil {
			return Outcome{}, err
		}
		next, err := inter.MustEpoch(es.Epoch).Next()
		if err != nil {
			return Outcome{}, err
		}
		ops = closeOps
		out.Closed = rec
		es = iblockproc.EpochState{
			Epoch:           next.Index,
			EpochStart:      info.Time,
			PrevEpochStart:  es.EpochStart,
			StartHeight:     info.Height + 1,
			ProtocolVersion: rec.NextProtocolVersion,
		}
	} else {
		ops = append(ops, drive.SetProcessingPoolOp(pool))
	}

	op, err := drive.SetEpochStateOp(&es)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := m.drive.Apply(tx, append(ops, op)); err != nil {
		return Outcome{}, err
	}
	out.State = es
	if out.StateHash, err = es.Hash(pv.Epochs.StateHash); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// close settles es. pool is the processing pool including the closing block.
func (m *Manager) close(tx state.Transaction, es iblockproc.EpochState, pool uint64, info inter.BlockInfo, pv *platform.PlatformVersion) (*ier.EpochRecord, []state.Op, error) {
	epoch := inter.MustEpoch(es.Epoch)
	bucket, bucketExists, err := m.drive.StorageBucket(tx, epoch)
	if err != nil {
		return nil, nil, err
	}
	carry, err := m.drive.Carry(tx)
	if err != nil {
		return nil, nil, err
	}
	total, err := checked.Sum(pool, bucket, carry)
	if err != nil {
		return nil, nil, err
	}

	rec := &ier.EpochRecord{
		State:          es,
		EndHeight:      info.Height,
		EndTime:        info.Time,
		ProcessingPool: pool,
		StorageBucket:  bucket,
		CarryIn:        carry,
	}
	payouts, ops, err := m.payout(tx, es, total)
	if err != nil {
		return nil, nil, err
	}
	rec.Payouts = payouts
	if rec.CarryOut, err = checked.Sub(total, rec.Paid()); err != nil {
		return nil, nil, err
	}
	rec.NextProtocolVersion = m.tally(es, pv)

	ops = append(ops, drive.SetProcessingPoolOp(0), drive.SetCarryOp(rec.CarryOut))
	if op, ok := drive.SetStorageBucketOp(epoch, 0, bucketExists); ok {
		ops = append(ops, op)
	}
	settle, err := drive.SettlementOp(epoch, rec)
	if err != nil {
		return nil, nil, err
	}
	ops = append(ops, settle)

	stateHash, err := es.Hash(pv.Epochs.StateHash)
	if err != nil {
		return nil, nil, err
	}
	m.log.WithFields(logrus.Fields{
		"epoch":    es.Epoch,
		"blocks":   es.Blocks(),
		"pool":     total,
		"paid":     rec.Paid(),
		"carry":    rec.CarryOut,
		"protocol": rec.NextProtocolVersion,
		"record":   rec.Hash(stateHash).String(),
	}).Info("Epoch sealed")
	return rec, ops, nil
}

// payout splits total across proposers by blocks proposed. Shares are
// floored; the remainder stays in the carry.
func (m *Manager) payout(tx state.Transaction, es iblockproc.EpochState, total uint64) ([]ier.Payout, []state.Op, error) {
	blocks := es.Blocks()
	if blocks == 0 {
		return nil, nil, nil
	}
	payouts := make([]ier.Payout, 0, len(es.Proposers))
	var ops []state.Op
	for _, p := range es.Proposers {
		share, err := checked.MulDiv(total, p.Blocks, blocks)
		if err != nil {
			return nil, nil, err
		}
		po := ier.Payout{ProTxHash: p.ProTxHash, Blocks: p.Blocks, Credits: share}
		id := PayableIdentity(p.ProTxHash)
		exists, err := m.drive.IdentityExists(tx, id)
		if err != nil {
			return nil, nil, err
		}
		if !exists {
			po.Skipped = true
			m.log.WithFields(logrus.Fields{
				"epoch":    es.Epoch,
				"proposer": fmt.Sprintf("%x", p.ProTxHash[:]),
				"share":    share,
			}).Warn("Proposer has no payable identity, share carried over")
			payouts = append(payouts, po)
			continue
		}
		if share != 0 {
			balance, err := m.drive.Balance(tx, id)
			if err != nil {
				return nil, nil, err
			}
			if balance, err = checked.Add(balance, share); err != nil {
				return nil, nil, err
			}
			ops = append(ops, drive.SetBalanceOp(id, balance))
		}
		payouts = append(payouts, po)
	}
	return payouts, ops, nil
}

// tally picks the protocol version of the next epoch. A version activates
// when its proposers produced at least the threshold share of the epoch's
// blocks and this node can execute it. Ties go to the higher version.
func (m *Manager) tally(es iblockproc.EpochState, pv *platform.PlatformVersion) uint32 {
	blocks := es.Blocks()
	next := es.ProtocolVersion
	var best uint64
	for _, v := range es.Votes {
		if v.Blocks*100 < pv.Epochs.UpgradeVoteThreshold*blocks {
			continue
		}
		if !m.table.Has(v.Version) {
			m.log.WithFields(logrus.Fields{
				"epoch":   es.Epoch,
				"version": v.Version,
				"votes":   v.Blocks,
			}).Error("Network voted for a protocol version this node does not know")
			continue
		}
		if v.Blocks >= best {
			best, next = v.Blocks, v.Version
		}
	}
	if next != es.ProtocolVersion {
		m.log.WithFields(logrus.Fields{
			"epoch": es.Epoch,
			"from":  es.ProtocolVersion,
			"to":    next,
		}).Info("Protocol upgrade scheduled")
	}
	return next
}

// PayableIdentity is the identity credited with a masternode's share.
func PayableIdentity(pro inter.ProTxHash) inter.Identifier {
	return inter.Identifier(pro)
}

// EpochAt returns the epoch a block at height runs in.
func EpochAt(es *iblockproc.EpochState, height idx.Block) (inter.Epoch, error) {
	if height < es.StartHeight {
		return inter.Epoch{}, platform.Corrupted("height %d precedes epoch %d start %d", height, es.Epoch, es.StartHeight)
	}
	return inter.NewEpoch(es.Epoch)
}
