package epoch

import (
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/inter/iblockproc"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

type fixture struct {
	t     *testing.T
	drive *drive.Drive
	rules platform.Rules
	pv    *platform.PlatformVersion
	mgr   *Manager
	logs  *test.Hook
	tx    state.Transaction
	// height of the last processed block
	height idx.Block
}

func newFixture(t *testing.T) *fixture {
	rules := platform.FakeNetRules()
	pv, err := rules.Versions.Get(1)
	require.NoError(t, err)
	logger, hook := test.NewNullLogger()
	d := drive.New(state.NewMemoryStore())
	f := &fixture{
		t:     t,
		drive: d,
		rules: rules,
		pv:    pv,
		mgr:   NewManager(d, rules.Versions, logger.WithField("module", "epoch")),
		logs:  hook,
	}
	f.tx, err = d.Store().StartTransaction()
	require.NoError(t, err)
	_, err = f.mgr.Init(f.tx, 0, 1)
	require.NoError(t, err)
	return f
}

func proTx(b byte) inter.ProTxHash {
	var p inter.ProTxHash
	p[0] = b
	return p
}

func (f *fixture) register(pros ...inter.ProTxHash) {
	for _, p := range pros {
		ops, err := drive.CreateIdentityOps(&dpp.Identity{ID: PayableIdentity(p)})
		require.NoError(f.t, err)
		_, err = f.drive.Apply(f.tx, ops)
		require.NoError(f.t, err)
	}
}

func (f *fixture) block(at inter.Timestamp, proposer inter.ProTxHash, processing uint64, vote uint32) Outcome {
	f.t.Helper()
	es, err := f.mgr.Current(f.tx)
	require.NoError(f.t, err)
	f.height++
	info := inter.BlockInfo{
		Height:             f.height,
		Time:               at,
		ProposerProTxHash:  proposer,
		Epoch:              inter.MustEpoch(es.Epoch),
		ProposedAppVersion: vote,
	}
	out, err := f.mgr.ProcessBlock(f.tx, info, inter.BlockFees{ProcessingFee: processing}, f.pv)
	require.NoError(f.t, err)
	return out
}

func (f *fixture) balance(p inter.ProTxHash) uint64 {
	b, err := f.drive.Balance(f.tx, PayableIdentity(p))
	require.NoError(f.t, err)
	return b
}

func TestEpochPayoutSplitsByBlocks(t *testing.T) {
	f := newFixture(t)
	a, b, c := proTx(1), proTx(2), proTx(3)
	f.register(a, b, c)
	_, err := f.drive.Apply(f.tx, []state.Op{drive.SetSystemCreditsOp(5000)})
	require.NoError(t, err)

	proposers := []inter.ProTxHash{a, b, c, a, b, c, b, c, c, c}
	for i, p := range proposers[:9] {
		out := f.block(inter.Timestamp(i*1000), p, 500, 0)
		require.Nil(t, out.Closed)
	}
	out := f.block(f.pv.Epochs.Length+1, proposers[9], 500, 0)
	require.NotNil(t, out.Closed)

	assert.Equal(t, uint64(1000), f.balance(a))
	assert.Equal(t, uint64(1500), f.balance(b))
	assert.Equal(t, uint64(2500), f.balance(c))
	assert.Equal(t, uint64(5000), out.Closed.Pool())
	assert.Equal(t, uint64(0), out.Closed.CarryOut)

	pool, err := f.drive.ProcessingPool(f.tx)
	require.NoError(t, err)
	assert.Zero(t, pool)
	require.NoError(t, f.drive.VerifyConservation(f.tx))

	assert.Equal(t, uint16(1), out.State.Epoch)
	assert.Equal(t, idx.Block(11), out.State.StartHeight)
	assert.Equal(t, f.pv.Epochs.Length+1, out.State.EpochStart)
	assert.Empty(t, out.State.Proposers)

	rec, err := f.drive.Settlement(f.tx, inter.MustEpoch(0))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, out.Closed.Payouts, rec.Payouts)
}

func TestEpochClosesOnlyAfterLength(t *testing.T) {
	f := newFixture(t)
	a := proTx(1)
	f.register(a)

	f.block(0, a, 0, 0)
	out := f.block(f.pv.Epochs.Length, a, 0, 0)
	require.Nil(t, out.Closed, "a block exactly one length after the start stays in the epoch")
	assert.Equal(t, uint16(0), out.State.Epoch)

	out = f.block(f.pv.Epochs.Length+1, a, 0, 0)
	require.NotNil(t, out.Closed)
	assert.Equal(t, uint64(3), out.Closed.State.Blocks())
	assert.Equal(t, uint16(1), out.State.Epoch)
}

func TestEpochPayoutIncludesBucketAndCarry(t *testing.T) {
	f := newFixture(t)
	a, b := proTx(1), proTx(2)
	f.register(a, b)
	bucket, _ := drive.SetStorageBucketOp(inter.MustEpoch(0), 7, false)
	_, err := f.drive.Apply(f.tx, []state.Op{bucket, drive.SetCarryOp(3), drive.SetSystemCreditsOp(20)})
	require.NoError(t, err)

	f.block(0, a, 5, 0)
	out := f.block(f.pv.Epochs.Length+1, b, 5, 0)
	require.NotNil(t, out.Closed)

	// 20 split 1:1
	assert.Equal(t, uint64(10), f.balance(a))
	assert.Equal(t, uint64(10), f.balance(b))
	_, exists, err := f.drive.StorageBucket(f.tx, inter.MustEpoch(0))
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, f.drive.VerifyConservation(f.tx))
}

func TestUnpayableProposerShareIsCarried(t *testing.T) {
	f := newFixture(t)
	a, ghost := proTx(1), proTx(9)
	f.register(a)
	_, err := f.drive.Apply(f.tx, []state.Op{drive.SetSystemCreditsOp(101)})
	require.NoError(t, err)

	f.block(0, a, 50, 0)
	f.block(1, ghost, 50, 0)
	out := f.block(f.pv.Epochs.Length+1, a, 1, 0)
	require.NotNil(t, out.Closed)

	// 101 * 2/3 = 67 paid, ghost's 33 and the remainder 1 carried
	assert.Equal(t, uint64(67), f.balance(a))
	assert.Equal(t, uint64(34), out.Closed.CarryOut)
	carry, err := f.drive.Carry(f.tx)
	require.NoError(t, err)
	assert.Equal(t, uint64(34), carry)
	assert.True(t, out.Closed.Payouts[1].Skipped)
	require.NoError(t, f.drive.VerifyConservation(f.tx))

	var warned bool
	for _, e := range f.logs.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestVotesUpgradeProtocol(t *testing.T) {
	for name, tc := range map[string]struct {
		votes []uint32
		want  uint32
	}{
		"unanimous":       {votes: []uint32{2, 2, 2, 2}, want: 2},
		"at threshold":    {votes: []uint32{2, 2, 2, 0}, want: 2},
		"below threshold": {votes: []uint32{2, 2, 0, 0}, want: 1},
		"unknown version": {votes: []uint32{7, 7, 7, 7}, want: 1},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			var out Outcome
			for i, v := range tc.votes {
				at := inter.Timestamp(i)
				if i == len(tc.votes)-1 {
					at = f.pv.Epochs.Length + 1
				}
				out = f.block(at, proTx(byte(i+1)), 0, v)
			}
			require.NotNil(t, out.Closed)
			assert.Equal(t, tc.want, out.Closed.NextProtocolVersion)
			assert.Equal(t, tc.want, out.ProtocolVersion())
		})
	}
}

func TestEpochOverflowIsFatal(t *testing.T) {
	f := newFixture(t)
	last := &iblockproc.EpochState{Epoch: inter.MaxEpochIndex, StartHeight: 1, ProtocolVersion: 1}
	op, err := drive.SetEpochStateOp(last)
	require.NoError(t, err)
	_, err = f.drive.Apply(f.tx, []state.Op{op})
	require.NoError(t, err)

	info := inter.BlockInfo{Height: 1, Time: f.pv.Epochs.Length + 1, Epoch: inter.MustEpoch(inter.MaxEpochIndex)}
	_, err = f.mgr.ProcessBlock(f.tx, info, inter.BlockFees{}, f.pv)
	require.ErrorIs(t, err, inter.ErrEpochOverflow)
	assert.True(t, platform.IsFatal(err))
}

func TestStateHashFollowsVersion(t *testing.T) {
	f := newFixture(t)
	out := f.block(1, proTx(1), 0, 2)

	legacy, err := out.State.Hash(0)
	require.NoError(t, err)
	full, err := out.State.Hash(1)
	require.NoError(t, err)
	assert.Equal(t, legacy, out.StateHash)
	assert.NotEqual(t, legacy, full)

	_, err = out.State.Hash(9)
	var uvm *platform.UnknownVersionMismatch
	require.ErrorAs(t, err, &uvm)
}

func TestUnknownManagerVersion(t *testing.T) {
	f := newFixture(t)
	pv := *f.pv
	pv.Epochs.Manager = 5
	_, err := f.mgr.ProcessBlock(f.tx, inter.BlockInfo{Height: 1}, inter.BlockFees{}, &pv)
	require.True(t, platform.IsFatal(err))
}
