package validators

import (
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/Fantom-foundation/lachesis-base/inter/pos"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashpay/platform-sub039/crypto"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/inter/drivertype"
	"github.com/dashpay/platform-sub039/inter/validatorpk"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

func masternode(b byte, weight pos.Weight) drivertype.Masternode {
	var pro inter.ProTxHash
	pro[0] = b
	return drivertype.Masternode{
		ProTxHash: pro,
		Weight:    weight,
		PubKey: validatorpk.PubKey{
			Type: validatorpk.Types.Secp256k1,
			Raw:  crypto.DeterministicSigner(string([]byte{'m', b})).PublicKey(),
		},
	}
}

func setup(t *testing.T) (*Coordinator, state.Transaction, *platform.PlatformVersion) {
	logger, _ := test.NewNullLogger()
	d := drive.New(state.NewMemoryStore())
	tx, err := d.Store().StartTransaction()
	require.NoError(t, err)
	pv, err := platform.FakeNetRules().Versions.Get(1)
	require.NoError(t, err)
	return NewCoordinator(d, logger), tx, pv
}

func proTxs(u *drivertype.ValidatorSetUpdate) []byte {
	out := make([]byte, len(u.Validators))
	for i, v := range u.Validators {
		out[i] = v.ProTxHash[0]
	}
	return out
}

func TestQuorumTakesHeaviestMasternodes(t *testing.T) {
	c, tx, pv := setup(t)
	require.Equal(t, 4, pv.Validators.QuorumSize)

	banned := masternode(6, 100)
	banned.Status |= drivertype.BannedBit
	diff := MasternodeListDiff{Added: []drivertype.Masternode{
		masternode(1, 10), masternode(2, 30), masternode(3, 20),
		masternode(4, 20), masternode(5, 5), banned,
	}}
	u, err := c.Apply(tx, diff, pv)
	require.NoError(t, err)
	require.NotNil(t, u)

	// weight desc, ties by proTxHash
	assert.Equal(t, []byte{2, 3, 4, 1}, proTxs(u))
	for i, v := range u.Validators {
		assert.Equal(t, idx.ValidatorID(i+1), v.ValidatorID)
	}
	assert.Equal(t, QuorumHash(u.Validators), u.QuorumHash)

	active, members, err := c.drive.ActiveQuorum(tx)
	require.NoError(t, err)
	assert.Equal(t, u.QuorumHash, active)
	assert.Len(t, members, 4)
}

func TestUnchangedQuorumEmitsNothing(t *testing.T) {
	c, tx, pv := setup(t)
	_, err := c.Apply(tx, MasternodeListDiff{Added: []drivertype.Masternode{masternode(1, 10), masternode(2, 10)}}, pv)
	require.NoError(t, err)

	u, err := c.Apply(tx, MasternodeListDiff{}, pv)
	require.NoError(t, err)
	assert.Nil(t, u)

	// a node outside the quorum changing does not rotate it
	small := *pv
	small.Validators.QuorumSize = 1
	_, err = c.Apply(tx, MasternodeListDiff{}, &small)
	require.NoError(t, err)
	u, err = c.Apply(tx, MasternodeListDiff{Updated: []drivertype.Masternode{masternode(2, 5)}}, &small)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestRemovalAndBanRotate(t *testing.T) {
	c, tx, pv := setup(t)
	_, err := c.Apply(tx, MasternodeListDiff{Added: []drivertype.Masternode{masternode(1, 10), masternode(2, 10), masternode(3, 10)}}, pv)
	require.NoError(t, err)

	var gone inter.ProTxHash
	gone[0] = 1
	u, err := c.Apply(tx, MasternodeListDiff{Removed: []inter.ProTxHash{gone}}, pv)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, []byte{2, 3}, proTxs(u))

	banned := masternode(2, 10)
	banned.Status = drivertype.BannedBit
	u, err = c.Apply(tx, MasternodeListDiff{Updated: []drivertype.Masternode{banned}}, pv)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, []byte{3}, proTxs(u))

	// removing an unknown node is a no-op
	var unknown inter.ProTxHash
	unknown[0] = 42
	u, err = c.Apply(tx, MasternodeListDiff{Removed: []inter.ProTxHash{unknown}}, pv)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestEmptyListKeepsQuorum(t *testing.T) {
	c, tx, pv := setup(t)
	u, err := c.Apply(tx, MasternodeListDiff{}, pv)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUnknownRotationVersion(t *testing.T) {
	c, tx, pv := setup(t)
	bad := *pv
	bad.Validators.Rotation = 3
	_, err := c.Apply(tx, MasternodeListDiff{}, &bad)
	assert.True(t, platform.IsFatal(err))
}
