package drive

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/inter/drivertype"
	"github.com/dashpay/platform-sub039/inter/iblockproc"
	"github.com/dashpay/platform-sub039/inter/ibr"
	"github.com/dashpay/platform-sub039/inter/ier"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

var keyQuorumMembers = []byte("members")

// EpochState returns the running epoch, nil before InitChain.
func (d *Drive) EpochState(tx state.Transaction) (*iblockproc.EpochState, error) {
	var es iblockproc.EpochState
	ok, err := d.GetRLP(tx, EpochsPath, KeyCurrentEpoch, &es)
	if err != nil || !ok {
		return nil, err
	}
	return &es, nil
}

func SetEpochStateOp(es *iblockproc.EpochState) (state.Op, error) {
	return PutRLP(EpochsPath, KeyCurrentEpoch, es)
}

// Settlement returns the record of a closed epoch, nil if it never closed.
func (d *Drive) Settlement(tx state.Transaction, epoch inter.Epoch) (*ier.EpochRecord, error) {
	var r ier.EpochRecord
	ok, err := d.GetRLP(tx, SettlementsPath, epoch.Key[:], &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

func SettlementOp(epoch inter.Epoch, r *ier.EpochRecord) (state.Op, error) {
	return PutRLP(SettlementsPath, epoch.Key[:], r)
}

// BlockRecord returns the record of height, nil if absent.
func (d *Drive) BlockRecord(tx state.Transaction, height idx.Block) (*ibr.BlockRecord, error) {
	var r ibr.BlockRecord
	ok, err := d.GetRLP(tx, BlocksPath, U64(uint64(height)), &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

func BlockRecordOp(r *ibr.BlockRecord) (state.Op, error) {
	return PutRLP(BlocksPath, U64(uint64(r.Height)), r)
}

// Masternodes lists the registered masternodes ordered by ProTxHash.
func (d *Drive) Masternodes(tx state.Transaction) ([]drivertype.Masternode, error) {
	items, err := d.Query(tx, state.PathQuery{Path: MasternodesPath})
	if err != nil {
		return nil, err
	}
	out := make([]drivertype.Masternode, len(items))
	for i, it := range items {
		if err := decodeRLP(it.Element.Value, &out[i]); err != nil {
			return nil, platform.Corrupted("masternode %x: %v", it.Key, err)
		}
	}
	return out, nil
}

func (d *Drive) Masternode(tx state.Transaction, pro inter.ProTxHash) (*drivertype.Masternode, error) {
	var mn drivertype.Masternode
	ok, err := d.GetRLP(tx, MasternodesPath, pro[:], &mn)
	if err != nil || !ok {
		return nil, err
	}
	return &mn, nil
}

func PutMasternodeOp(mn *drivertype.Masternode) (state.Op, error) {
	return PutRLP(MasternodesPath, mn.ProTxHash[:], mn)
}

func DeleteMasternodeOp(pro inter.ProTxHash) state.Op {
	return state.Delete(MasternodesPath, pro[:])
}

// ActiveQuorum returns the hash and members of the quorum in force.
func (d *Drive) ActiveQuorum(tx state.Transaction) (hash.Hash, []drivertype.Validator, error) {
	e, err := d.Get(tx, QuorumPath, KeyActiveQuorum)
	if err != nil || e == nil {
		return hash.Zero, nil, err
	}
	if len(e.Value) != len(hash.Zero) {
		return hash.Zero, nil, platform.Corrupted("active quorum: %d-byte hash", len(e.Value))
	}
	var members []drivertype.Validator
	if _, err := d.GetRLP(tx, QuorumPath, keyQuorumMembers, &members); err != nil {
		return hash.Zero, nil, err
	}
	return hash.BytesToHash(e.Value), members, nil
}

func SetActiveQuorumOps(u *drivertype.ValidatorSetUpdate) ([]state.Op, error) {
	members, err := PutRLP(QuorumPath, keyQuorumMembers, u.Validators)
	if err != nil {
		return nil, err
	}
	return []state.Op{state.Insert(QuorumPath, KeyActiveQuorum, u.QuorumHash.Bytes()), members}, nil
}
