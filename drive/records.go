package drive

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

func bytesToU64(b []byte) uint64 { return bigendian.BytesToUint64(b) }

// AssetLockSpent reports whether an outpoint already funded an identity.
func (d *Drive) AssetLockSpent(tx state.Transaction, outPoint [dpp.OutPointLength]byte) (bool, error) {
	e, err := d.Get(tx, AssetLocksPath, outPoint[:])
	return e != nil, err
}

// SpendAssetLockOp marks outPoint spent by identity.
func SpendAssetLockOp(outPoint [dpp.OutPointLength]byte, identity inter.Identifier) state.Op {
	return state.Insert(AssetLocksPath, outPoint[:], identity.Bytes())
}

// NextWithdrawalIndex is the queue position of the next withdrawal.
func (d *Drive) NextWithdrawalIndex(tx state.Transaction) (uint64, error) {
	v, _, err := d.GetU64(tx, CountersPath, KeyWithdrawalIndex)
	return v, err
}

// QueueWithdrawalOps appends w at index and advances the counter.
func QueueWithdrawalOps(index uint64, w *dpp.Withdrawal) ([]state.Op, error) {
	op, err := PutRLP(WithdrawalsPath, U64(index), w)
	if err != nil {
		return nil, err
	}
	return []state.Op{op, PutU64(CountersPath, KeyWithdrawalIndex, index+1)}, nil
}

// Withdrawals lists queued withdrawals in queue order.
func (d *Drive) Withdrawals(tx state.Transaction, limit int) ([]dpp.Withdrawal, error) {
	items, err := d.Query(tx, state.PathQuery{Path: WithdrawalsPath, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]dpp.Withdrawal, 0, len(items))
	for _, it := range items {
		w, err := dpp.DecodeWithdrawal(it.Element.Value)
		if err != nil {
			return nil, platform.Corrupted("withdrawal %x: %v", it.Key, err)
		}
		out = append(out, *w)
	}
	return out, nil
}

func (d *Drive) NextHistoryIndex(tx state.Transaction) (uint64, error) {
	v, _, err := d.GetU64(tx, CountersPath, KeyHistoryIndex)
	return v, err
}

// HistoryOps appends records starting at index and advances the counter.
func HistoryOps(index uint64, records []dpp.HistoryRecord) ([]state.Op, error) {
	ops := make([]state.Op, 0, len(records)+1)
	for i := range records {
		op, err := PutRLP(HistoryPath, U64(index+uint64(i)), &records[i])
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return append(ops, PutU64(CountersPath, KeyHistoryIndex, index+uint64(len(records)))), nil
}

// History lists ledger records from index start.
func (d *Drive) History(tx state.Transaction, start uint64, limit int) ([]dpp.HistoryRecord, error) {
	q := state.PathQuery{Path: HistoryPath, Limit: limit}
	if start > 0 {
		q.StartAfter = U64(start - 1)
	}
	items, err := d.Query(tx, q)
	if err != nil {
		return nil, err
	}
	out := make([]dpp.HistoryRecord, 0, len(items))
	for _, it := range items {
		r, err := dpp.DecodeHistoryRecord(it.Element.Value)
		if err != nil {
			return nil, platform.Corrupted("history %x: %v", it.Key, err)
		}
		out = append(out, *r)
	}
	return out, nil
}
