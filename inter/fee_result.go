package inter

import (
	"sort"

	"github.com/dashpay/platform-sub039/utils/checked"
)

// Refund is storage credit owed back to the identity that prepaid it, taken
// from the bucket of the epoch the data was stored in.
type Refund struct {
	IdentityID Identifier
	Epoch      Epoch
	Credits    uint64
}

// FeeResult is the fee outcome of one transition.
//
// StorageFee is signed: a transition that frees more prepaid storage than it
// allocates ends up with credits owed back.
type FeeResult struct {
	StorageFee    int64
	ProcessingFee uint64
	FeeMultiplier uint64
	Refunds       []Refund
}

// RefundsFor sums refunds owed to id.
func (f FeeResult) RefundsFor(id Identifier) (uint64, error) {
	var total uint64
	for _, r := range f.Refunds {
		if r.IdentityID != id {
			continue
		}
		var err error
		if total, err = checked.Add(total, r.Credits); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// TotalCharged is storage plus processing, clamped at zero.
func (f FeeResult) TotalCharged() (uint64, error) {
	if f.StorageFee < 0 {
		sub := uint64(-f.StorageFee)
		if sub >= f.ProcessingFee {
			return 0, nil
		}
		return f.ProcessingFee - sub, nil
	}
	return checked.Add(uint64(f.StorageFee), f.ProcessingFee)
}

// BlockFees aggregates fee results of all accepted transitions in a block.
type BlockFees struct {
	StorageFee    uint64
	ProcessingFee uint64
	RefundsTotal  uint64
	// RefundsByEpoch is sparse. Iterate with SortedRefundEpochs.
	RefundsByEpoch map[uint16]uint64
}

// Add folds one transition result in. Negative storage fees are refunds and
// are accounted through Refunds, not through StorageFee.
func (b *BlockFees) Add(f FeeResult) error {
	var err error
	if f.StorageFee > 0 {
		if b.StorageFee, err = checked.Add(b.StorageFee, uint64(f.StorageFee)); err != nil {
			return err
		}
	}
	if b.ProcessingFee, err = checked.Add(b.ProcessingFee, f.ProcessingFee); err != nil {
		return err
	}
	for _, r := range f.Refunds {
		if b.RefundsTotal, err = checked.Add(b.RefundsTotal, r.Credits); err != nil {
			return err
		}
		if b.RefundsByEpoch == nil {
			b.RefundsByEpoch = make(map[uint16]uint64)
		}
		if b.RefundsByEpoch[r.Epoch.Index], err = checked.Add(b.RefundsByEpoch[r.Epoch.Index], r.Credits); err != nil {
			return err
		}
	}
	return nil
}

// SortedRefundEpochs lists epoch indices with refunds in ascending order.
func (b BlockFees) SortedRefundEpochs() []uint16 {
	out := make([]uint16, 0, len(b.RefundsByEpoch))
	for k := range b.RefundsByEpoch {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
