package fees

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

func sum(m map[uint16]uint64) uint64 {
	var s uint64
	for _, v := range m {
		s += v
	}
	return s
}

func TestDistributeStorageFee(t *testing.T) {
	pv := platform.FakeNetV1()

	alloc, err := DistributeStorageFee(100, 1, &pv)
	require.NoError(t, err)
	require.Equal(t, map[uint16]uint64{1: 35, 2: 33, 3: 16, 4: 16}, alloc)

	for _, amount := range []uint64{0, 1, 7, 999, 123456789, 1 << 60} {
		alloc, err := DistributeStorageFee(amount, 10, &pv)
		require.NoError(t, err)
		require.Equal(t, amount, sum(alloc), "amount %d", amount)
	}

	main := platform.MainNetV1()
	alloc, err = DistributeStorageFee(27000*1000, 1, &main)
	require.NoError(t, err)
	require.Equal(t, uint64(27000*1000), sum(alloc))
	require.Len(t, alloc, int(main.Epochs.PrepaidEpochs()))
}

func TestDistributeClampsAtLastEpoch(t *testing.T) {
	pv := platform.FakeNetV1()
	alloc, err := DistributeStorageFee(100, inter.MaxEpochIndex-1, &pv)
	require.NoError(t, err)
	require.Equal(t, uint64(100), sum(alloc))
	for idx := range alloc {
		require.LessOrEqual(t, idx, uint16(inter.MaxEpochIndex))
	}
}

func TestRefundForRemoval(t *testing.T) {
	pv := platform.FakeNetV1()
	flags := &dpp.StorageFlags{EpochIndex: 0, Bytes: 25}

	refund, err := RefundForRemoval(flags, inter.MustEpoch(2), &pv)
	require.NoError(t, err)
	require.Equal(t, map[uint16]uint64{3: 16, 4: 16}, refund)

	refund, err = RefundForRemoval(flags, inter.MustEpoch(0), &pv)
	require.NoError(t, err)
	require.Equal(t, uint64(100), sum(refund))

	refund, err = RefundForRemoval(flags, inter.MustEpoch(9), &pv)
	require.NoError(t, err)
	require.Empty(t, refund)
}

func TestStorageAllocationsMatchRefunds(t *testing.T) {
	pv := platform.FakeNetV1()
	owner := inter.DeriveIdentifier([]byte("owner"))
	flags := dpp.StorageFlags{OwnerID: owner, EpochIndex: 0, Bytes: 25}
	costs := state.OperationCosts{
		AddedBytes: 30,
		Added:      []state.SizedElement{{Flags: flags.Encode(), Size: 25}},
	}

	alloc, err := StorageAllocations(costs, inter.MustEpoch(0), &pv)
	require.NoError(t, err)
	require.Equal(t, uint64(120), sum(alloc))
	require.Equal(t, map[uint16]uint64{1: 35 + 8, 2: 33 + 6, 3: 16 + 3, 4: 16 + 3}, alloc)

	refunds, err := Refunds([]state.SizedElement{{Flags: flags.Encode(), Size: 25}}, inter.MustEpoch(0), &pv)
	require.NoError(t, err)
	var total uint64
	for _, r := range refunds {
		require.Equal(t, owner, r.IdentityID)
		require.LessOrEqual(t, r.Credits, alloc[r.Epoch.Index])
		total += r.Credits
	}
	require.Equal(t, uint64(100), total)
}

func TestCalculate(t *testing.T) {
	pv := platform.FakeNetV1()
	u := Usage{
		Costs:         state.OperationCosts{Seeks: 2, LoadedBytes: 10, AddedBytes: 30},
		InputBytes:    50,
		SignatureCost: 5,
		BaseFee:       10,
	}

	res, err := Calculate(u, inter.MustEpoch(0), 0, &pv)
	require.NoError(t, err)
	require.Equal(t, int64(120), res.StorageFee)
	require.Equal(t, uint64(57), res.ProcessingFee)
	require.Equal(t, uint64(100), res.FeeMultiplier)

	res, err = Calculate(u, inter.MustEpoch(0), 100, &pv)
	require.NoError(t, err)
	require.Equal(t, uint64(114), res.ProcessingFee)
	require.Equal(t, uint64(200), res.FeeMultiplier)
}

func TestCalculateUnknownVersion(t *testing.T) {
	pv := platform.FakeNetV1()
	pv.Fees.Calculation = 7
	_, err := Calculate(Usage{}, inter.MustEpoch(0), 0, &pv)
	require.True(t, platform.IsFatal(err))
}

func TestSignatureCost(t *testing.T) {
	s := platform.DefaultFeeSchedule()
	require.Equal(t, s.Bls12381VerifyCost, SignatureCost(dpp.KeyTypeBLS12381, s))
	require.Equal(t, s.EcdsaHash160VerifyCost, SignatureCost(dpp.KeyTypeECDSAHash160, s))
	require.Equal(t, s.EcdsaSecp256k1VerifyCost, SignatureCost(dpp.KeyTypeECDSASecp256k1, s))
}
