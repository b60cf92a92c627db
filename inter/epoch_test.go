package inter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEpochKeyRoundTrip(t *testing.T) {
	for i := 0; i <= MaxEpochIndex; i++ {
		e, err := NewEpoch(uint16(i))
		require.NoError(t, err)
		back, err := EpochFromKey(e.Key[:])
		require.NoError(t, err)
		require.Equal(t, e, back)
	}
}

func TestEpochOverflow(t *testing.T) {
	for _, i := range []int{MaxEpochIndex + 1, MaxEpochIndex + 100, 0xffff} {
		_, err := NewEpoch(uint16(i))
		require.ErrorIs(t, err, ErrEpochOverflow, "index %d", i)
	}

	last := MustEpoch(MaxEpochIndex)
	_, err := last.Next()
	require.ErrorIs(t, err, ErrEpochOverflow)
}

func TestEpochKeyLayout(t *testing.T) {
	e := MustEpoch(0)
	require.Equal(t, [2]byte{0x01, 0x00}, e.Key)

	e = MustEpoch(1)
	require.Equal(t, [2]byte{0x01, 0x01}, e.Key)

	next, err := MustEpoch(41).Next()
	require.NoError(t, err)
	require.Equal(t, uint16(42), next.Index)
	require.True(t, next.Valid())

	require.False(t, Epoch{Index: 3}.Valid())
}

func TestEpochFromKeyRejectsBadKeys(t *testing.T) {
	_, err := EpochFromKey([]byte{0x00, 0xff})
	require.ErrorIs(t, err, ErrInvalidEpochKey)

	_, err = EpochFromKey([]byte{0x01})
	require.ErrorIs(t, err, ErrInvalidEpochKey)
}

func TestIdentifierText(t *testing.T) {
	id := DeriveIdentifier([]byte("owner"), []byte{1})
	back, err := IdentifierFromString(id.String())
	require.NoError(t, err)
	require.Equal(t, id, back)

	_, err = IdentifierFromString("")
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = IdentifierFromBytes([]byte{1, 2})
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	require.True(t, ZeroIdentifier.IsZero())
	require.True(t, Identifier{1}.Less(Identifier{2}))
}

func TestBlockFeesAggregate(t *testing.T) {
	var fees BlockFees
	require.NoError(t, fees.Add(FeeResult{StorageFee: 100, ProcessingFee: 10}))
	require.NoError(t, fees.Add(FeeResult{
		StorageFee:    -30,
		ProcessingFee: 5,
		Refunds:       []Refund{{IdentityID: Identifier{1}, Epoch: MustEpoch(4), Credits: 30}},
	}))
	require.Equal(t, uint64(100), fees.StorageFee)
	require.Equal(t, uint64(15), fees.ProcessingFee)
	require.Equal(t, uint64(30), fees.RefundsTotal)
	require.Equal(t, []uint16{4}, fees.SortedRefundEpochs())

	total, err := FeeResult{StorageFee: -30, ProcessingFee: 5}.TotalCharged()
	require.NoError(t, err)
	require.Zero(t, total)
}
