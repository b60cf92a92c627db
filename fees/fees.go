// Package fees prices the work a transition did and spreads prepaid storage
// over future epochs. All arithmetic is checked; overflow is fatal.
package fees

import (
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/utils/checked"
)

// Usage is everything a transition consumed that has a price.
type Usage struct {
	Costs state.OperationCosts
	// InputBytes is the size of the encoded transition.
	InputBytes uint64
	// SignatureCost is the sum of verification prices for checked signatures.
	SignatureCost uint64
	// BaseFee is the flat fee of the transition kind.
	BaseFee uint64
}

type calculateFn func(u Usage, current inter.Epoch, userFeeIncrease uint16, pv *platform.PlatformVersion) (inter.FeeResult, error)

var calculators = map[platform.FeatureVersion]calculateFn{
	0: calculateV0,
}

// Calculate prices u. Storage is AddedBytes at the disk rate. Processing
// covers seeks, loads, written bytes, input hashing, signatures and the base
// fee, then is raised by userFeeIncrease percent. Refunds come from the
// flags of removed elements.
func Calculate(u Usage, current inter.Epoch, userFeeIncrease uint16, pv *platform.PlatformVersion) (inter.FeeResult, error) {
	fn, err := platform.Dispatch("fees.calculate", pv.Fees.Calculation, calculators)
	if err != nil {
		return inter.FeeResult{}, err
	}
	return fn(u, current, userFeeIncrease, pv)
}

func calculateV0(u Usage, current inter.Epoch, userFeeIncrease uint16, pv *platform.PlatformVersion) (inter.FeeResult, error) {
	s := pv.Fees.Schedule
	c := u.Costs

	storage, err := StorageFeeFor(c.AddedBytes, s)
	if err != nil {
		return inter.FeeResult{}, err
	}
	storageFee, err := checked.ToInt64(storage)
	if err != nil {
		return inter.FeeResult{}, err
	}

	written, err := checked.Sum(c.AddedBytes, c.ReplacedBytes, c.RemovedBytes)
	if err != nil {
		return inter.FeeResult{}, err
	}
	parts := [][2]uint64{
		{c.Seeks, s.StorageSeekCost},
		{c.LoadedBytes, s.StorageLoadCreditPerByte},
		{written, s.StorageProcessingCreditPerByte},
		{u.InputBytes, s.NonStorageLoadCreditPerByte},
	}
	processing, err := checked.Add(u.SignatureCost, u.BaseFee)
	if err != nil {
		return inter.FeeResult{}, err
	}
	for _, p := range parts {
		v, err := checked.Mul(p[0], p[1])
		if err != nil {
			return inter.FeeResult{}, err
		}
		if processing, err = checked.Add(processing, v); err != nil {
			return inter.FeeResult{}, err
		}
	}
	if processing, err = checked.Percent(processing, userFeeIncrease); err != nil {
		return inter.FeeResult{}, err
	}

	refunds, err := Refunds(c.Removed, current, pv)
	if err != nil {
		return inter.FeeResult{}, err
	}
	return inter.FeeResult{
		StorageFee:    storageFee,
		ProcessingFee: processing,
		FeeMultiplier: 100 + uint64(userFeeIncrease),
		Refunds:       refunds,
	}, nil
}

// Refunds converts removed flagged elements into refunds, one per owner
// and epoch, in removal order then ascending epoch.
func Refunds(removed []state.SizedElement, current inter.Epoch, pv *platform.PlatformVersion) ([]inter.Refund, error) {
	var out []inter.Refund
	for _, e := range removed {
		flags, err := dpp.DecodeStorageFlags(e.Flags)
		if err != nil {
			return nil, platform.Corrupted("storage flags: %v", err)
		}
		if flags == nil {
			continue
		}
		alloc, err := RefundForRemoval(flags, current, pv)
		if err != nil {
			return nil, err
		}
		for _, idx := range SortedEpochs(alloc) {
			if alloc[idx] == 0 {
				continue
			}
			ep, err := inter.NewEpoch(idx)
			if err != nil {
				return nil, err
			}
			out = append(out, inter.Refund{IdentityID: flags.OwnerID, Epoch: ep, Credits: alloc[idx]})
		}
	}
	return out, nil
}

// SignatureCost is the verification price of one signature of keyType.
func SignatureCost(keyType dpp.KeyType, s platform.FeeSchedule) uint64 {
	switch keyType {
	case dpp.KeyTypeBLS12381:
		return s.Bls12381VerifyCost
	case dpp.KeyTypeECDSAHash160:
		return s.EcdsaHash160VerifyCost
	default:
		return s.EcdsaSecp256k1VerifyCost
	}
}
