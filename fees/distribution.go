package fees

import (
	"sort"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/utils/checked"
)

type distributeFn func(amount uint64, start uint16, ev platform.EpochVersions) (map[uint16]uint64, error)

var distributions = map[platform.FeatureVersion]distributeFn{
	0: distributeV0,
}

// DistributeStorageFee spreads a storage fee over the prepaid epochs that
// begin at start. Era i weighs (eras - i); an era's share is split evenly
// across its epochs and every remainder lands on start. The values always
// sum to amount.
func DistributeStorageFee(amount uint64, start uint16, pv *platform.PlatformVersion) (map[uint16]uint64, error) {
	fn, err := platform.Dispatch("fees.distribute_storage_fee", pv.Fees.Distribution, distributions)
	if err != nil {
		return nil, err
	}
	return fn(amount, start, pv.Epochs)
}

func distributeV0(amount uint64, start uint16, ev platform.EpochVersions) (map[uint16]uint64, error) {
	out := make(map[uint16]uint64)
	if amount == 0 {
		return out, nil
	}
	eras := uint64(ev.Eras)
	perEra := uint64(ev.EpochsPerEra)
	if eras == 0 || perEra == 0 {
		return nil, platform.Corrupted("epoch geometry %dx%d", ev.Eras, ev.EpochsPerEra)
	}
	totalWeight := eras * (eras + 1) / 2

	var distributed uint64
	for i := uint64(0); i < eras; i++ {
		eraAmount, err := checked.MulDiv(amount, eras-i, totalWeight)
		if err != nil {
			return nil, err
		}
		perEpoch := eraAmount / perEra
		if perEpoch == 0 {
			continue
		}
		for j := uint64(0); j < perEra; j++ {
			idx := clampEpoch(uint64(start) + i*perEra + j)
			if out[idx], err = checked.Add(out[idx], perEpoch); err != nil {
				return nil, err
			}
			if distributed, err = checked.Add(distributed, perEpoch); err != nil {
				return nil, err
			}
		}
	}
	rest, err := checked.Sub(amount, distributed)
	if err != nil {
		return nil, err
	}
	if rest != 0 {
		if out[start], err = checked.Add(out[start], rest); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// clampEpoch folds allocations past the last addressable epoch into it.
func clampEpoch(idx uint64) uint16 {
	if idx > inter.MaxEpochIndex {
		return inter.MaxEpochIndex
	}
	return uint16(idx)
}

// StartEpoch is the first epoch paid by storage written during current.
func StartEpoch(current inter.Epoch) uint16 {
	return clampEpoch(uint64(current.Index) + 1)
}

// StorageFeeFor is the prepaid fee of size stored bytes.
func StorageFeeFor(size uint64, schedule platform.FeeSchedule) (uint64, error) {
	return checked.Mul(size, schedule.StorageDiskUsageCreditPerByte)
}

// RefundForRemoval returns, per epoch, the part of an element's prepaid fee
// still held in buckets of epochs after current. The distribution is
// recomputed from the flags exactly as it was made on write.
func RefundForRemoval(flags *dpp.StorageFlags, current inter.Epoch, pv *platform.PlatformVersion) (map[uint16]uint64, error) {
	paid, err := StorageFeeFor(uint64(flags.Bytes), pv.Fees.Schedule)
	if err != nil {
		return nil, err
	}
	alloc, err := DistributeStorageFee(paid, clampEpoch(uint64(flags.EpochIndex)+1), pv)
	if err != nil {
		return nil, err
	}
	for idx := range alloc {
		if idx <= current.Index {
			delete(alloc, idx)
		}
	}
	return alloc, nil
}

// StorageAllocations splits the storage fee of costs into epoch buckets.
// Every flagged element is distributed on its own so its later refund
// matches what it added; unflagged bytes are distributed together.
func StorageAllocations(costs state.OperationCosts, current inter.Epoch, pv *platform.PlatformVersion) (map[uint16]uint64, error) {
	schedule := pv.Fees.Schedule
	start := StartEpoch(current)
	out := make(map[uint16]uint64)
	merge := func(alloc map[uint16]uint64) error {
		for idx, v := range alloc {
			var err error
			if out[idx], err = checked.Add(out[idx], v); err != nil {
				return err
			}
		}
		return nil
	}

	flagged, err := costs.FlaggedAddedBytes()
	if err != nil {
		return nil, err
	}
	for _, e := range costs.Added {
		fee, err := StorageFeeFor(e.Size, schedule)
		if err != nil {
			return nil, err
		}
		alloc, err := DistributeStorageFee(fee, start, pv)
		if err != nil {
			return nil, err
		}
		if err := merge(alloc); err != nil {
			return nil, err
		}
	}
	plain, err := checked.Sub(costs.AddedBytes, flagged)
	if err != nil {
		return nil, platform.Corrupted("flagged bytes %d exceed added bytes %d", flagged, costs.AddedBytes)
	}
	fee, err := StorageFeeFor(plain, schedule)
	if err != nil {
		return nil, err
	}
	alloc, err := DistributeStorageFee(fee, start, pv)
	if err != nil {
		return nil, err
	}
	if err := merge(alloc); err != nil {
		return nil, err
	}
	return out, nil
}

// SortedEpochs lists the keys of an allocation in ascending order.
func SortedEpochs(alloc map[uint16]uint64) []uint16 {
	out := make([]uint16, 0, len(alloc))
	for k := range alloc {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
