package drive

import (
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/utils/checked"
)

// ProcessingPool is the processing fee collected in the current epoch.
func (d *Drive) ProcessingPool(tx state.Transaction) (uint64, error) {
	v, _, err := d.GetU64(tx, PoolsPath, KeyProcessingPool)
	return v, err
}

// Carry is the undistributed remainder of earlier epochs.
func (d *Drive) Carry(tx state.Transaction) (uint64, error) {
	v, _, err := d.GetU64(tx, PoolsPath, KeyCarry)
	return v, err
}

// StorageBucket is the storage fee allocated to epoch.
func (d *Drive) StorageBucket(tx state.Transaction, epoch inter.Epoch) (uint64, bool, error) {
	return d.GetU64(tx, StorageBuckets, epoch.Key[:])
}

// SystemCredits is the number of credits that entered the platform minus
// those that left it.
func (d *Drive) SystemCredits(tx state.Transaction) (uint64, error) {
	v, _, err := d.GetU64(tx, PoolsPath, KeySystemCredits)
	return v, err
}

func SetProcessingPoolOp(v uint64) state.Op { return PutU64(PoolsPath, KeyProcessingPool, v) }

func SetCarryOp(v uint64) state.Op { return PutU64(PoolsPath, KeyCarry, v) }

func SetSystemCreditsOp(v uint64) state.Op { return PutU64(PoolsPath, KeySystemCredits, v) }

// SetStorageBucketOp writes a bucket; an empty bucket is deleted when it exists.
func SetStorageBucketOp(epoch inter.Epoch, v uint64, exists bool) (state.Op, bool) {
	if v == 0 {
		if !exists {
			return state.Op{}, false
		}
		return state.Delete(StorageBuckets, epoch.Key[:]), true
	}
	return PutU64(StorageBuckets, epoch.Key[:], v), true
}

// TotalCredits sums every place credits can rest: identity balances, the
// processing pool, the carry and all storage buckets.
func (d *Drive) TotalCredits(tx state.Transaction) (uint64, error) {
	var total uint64
	sum := func(items []state.KeyElement, what string) error {
		for _, it := range items {
			if len(it.Element.Value) != 8 {
				return platform.Corrupted("%s %x: %d-byte value", what, it.Key, len(it.Element.Value))
			}
			var err error
			if total, err = checked.Add(total, bytesToU64(it.Element.Value)); err != nil {
				return err
			}
		}
		return nil
	}
	balances, err := d.Query(tx, state.PathQuery{Path: BalancesPath})
	if err != nil {
		return 0, err
	}
	if err := sum(balances, "balance"); err != nil {
		return 0, err
	}
	buckets, err := d.Query(tx, state.PathQuery{Path: StorageBuckets})
	if err != nil {
		return 0, err
	}
	if err := sum(buckets, "storage bucket"); err != nil {
		return 0, err
	}
	pool, err := d.ProcessingPool(tx)
	if err != nil {
		return 0, err
	}
	carry, err := d.Carry(tx)
	if err != nil {
		return 0, err
	}
	return checked.Sum(total, pool, carry)
}

// VerifyConservation compares TotalCredits with SystemCredits.
func (d *Drive) VerifyConservation(tx state.Transaction) error {
	total, err := d.TotalCredits(tx)
	if err != nil {
		return err
	}
	system, err := d.SystemCredits(tx)
	if err != nil {
		return err
	}
	if total != system {
		return platform.Corrupted("credits not conserved: held %d, issued %d", total, system)
	}
	return nil
}
