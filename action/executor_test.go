package action

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/nonce"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

type fixture struct {
	t         *testing.T
	drive     *drive.Drive
	tx        state.Transaction
	exec      *Executor
	info      inter.BlockInfo
	collected uint64
}

func newFixture(t *testing.T) *fixture {
	store := state.NewMemoryStore()
	tx, err := store.StartTransaction()
	require.NoError(t, err)
	pv := platform.FakeNetV1()
	log, _ := test.NewNullLogger()
	d := drive.New(store)
	return &fixture{
		t:     t,
		drive: d,
		tx:    tx,
		exec:  NewExecutor(d, &pv, log.WithField("module", "action")),
		info:  inter.BlockInfo{Height: 2, Time: 1000, Epoch: inter.MustEpoch(0)},
	}
}

// run executes act and checks that credits are conserved once the
// processing fee reaches the pool.
func (f *fixture) run(act Action) inter.FeeResult {
	est, err := f.exec.Estimate(act, f.info, f.tx)
	require.NoError(f.t, err)
	res, err := f.exec.Execute(context.Background(), act, f.info, f.tx)
	require.NoError(f.t, err)
	require.Equal(f.t, est, res)

	f.collected += res.ProcessingFee
	total, err := f.drive.TotalCredits(f.tx)
	require.NoError(f.t, err)
	system, err := f.drive.SystemCredits(f.tx)
	require.NoError(f.t, err)
	require.Equal(f.t, system, total+f.collected, "credits not conserved after %s", act.Kind())
	return res
}

func (f *fixture) balance(id inter.Identifier) uint64 {
	b, err := f.drive.Balance(f.tx, id)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) createIdentity(name string, credits uint64) inter.Identifier {
	id := inter.DeriveIdentifier([]byte(name))
	var outPoint [dpp.OutPointLength]byte
	copy(outPoint[:], name)
	key := dpp.IdentityPublicKey{Type: dpp.KeyTypeECDSAHash160, SecurityLevel: dpp.SecurityLevelMaster, Data: id[:20]}
	f.run(NewIdentityCreate(dpp.Identity{ID: id, PublicKeys: []dpp.IdentityPublicKey{key}}, outPoint, credits, FeeInputs{BaseFee: 10}))
	return id
}

func noteType() *dpp.DocumentType {
	return &dpp.DocumentType{
		Name:         "note",
		Properties:   []dpp.PropertyDef{{Name: "title", Type: dpp.PropertyString}},
		Indices:      []dpp.Index{{Name: "byTitle", Properties: []string{"title"}, Unique: true}},
		Mutable:      true,
		CanBeDeleted: true,
	}
}

func TestIdentityCreateChargesFromLockedCredits(t *testing.T) {
	f := newFixture(t)
	id := f.createIdentity("alice", 100000)

	spent, err := f.drive.AssetLockSpent(f.tx, [dpp.OutPointLength]byte{'a', 'l', 'i', 'c', 'e'})
	require.NoError(t, err)
	require.True(t, spent)
	require.Less(t, f.balance(id), uint64(100000))

	system, err := f.drive.SystemCredits(f.tx)
	require.NoError(t, err)
	require.Equal(t, uint64(100000), system)
}

func TestCreditTransferAndWithdrawal(t *testing.T) {
	f := newFixture(t)
	alice := f.createIdentity("alice", 100000)
	bob := f.createIdentity("bob", 100000)
	aliceBefore, bobBefore := f.balance(alice), f.balance(bob)

	res := f.run(NewCreditTransfer(alice, bob, 500, nonce.Bump{IdentityID: alice, Nonce: 1}, FeeInputs{BaseFee: 10}))
	charged, err := res.TotalCharged()
	require.NoError(t, err)
	require.Equal(t, aliceBefore-500-charged, f.balance(alice))
	require.Equal(t, bobBefore+500, f.balance(bob))

	f.run(NewCreditWithdrawal(bob, 1000, 1, []byte{0x76}, nonce.Bump{IdentityID: bob, Nonce: 1}, FeeInputs{BaseFee: 10}))
	queued, err := f.drive.Withdrawals(f.tx, 0)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	require.Equal(t, bob, queued[0].IdentityID)
	require.Equal(t, uint64(1000), queued[0].Amount)

	system, err := f.drive.SystemCredits(f.tx)
	require.NoError(t, err)
	require.Equal(t, uint64(199000), system)
}

func TestDocumentDeleteRefundsPrepaidStorage(t *testing.T) {
	f := newFixture(t)
	alice := f.createIdentity("alice", 1000000)
	contract := inter.DeriveIdentifier([]byte("contract"))
	dt := noteType()
	doc := &dpp.Document{ID: inter.DeriveIdentifier([]byte("doc")), OwnerID: alice, Revision: 1}
	doc.Set("title", []byte("hello world"))

	create := NewDocumentsBatch(alice, FeeInputs{BaseFee: 10})
	create.Writes = []DocumentWrite{{Kind: WriteInsert, Contract: contract, Type: dt, Document: doc}}
	created := f.run(create)
	require.Empty(t, created.Refunds)

	stored, err := f.drive.FetchDocument(f.tx, contract, "note", doc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Flags)
	require.Equal(t, alice, stored.Flags.OwnerID)

	del := NewDocumentsBatch(alice, FeeInputs{BaseFee: 10})
	del.Writes = []DocumentWrite{{Kind: WriteDelete, Contract: contract, Type: dt, Document: doc}}
	deleted := f.run(del)
	require.NotEmpty(t, deleted.Refunds)

	var refunded uint64
	for _, r := range deleted.Refunds {
		require.Equal(t, alice, r.IdentityID)
		refunded += r.Credits
	}
	// everything the flagged elements prepaid comes back within the same epoch
	require.Equal(t, uint64(created.StorageFee)-flaggedPlainFee(t, f, create), refunded)
}

// flaggedPlainFee re-estimates the unflagged part of a batch's storage fee.
func flaggedPlainFee(t *testing.T, f *fixture, act *DocumentsBatch) uint64 {
	p, err := f.exec.plan(act, f.info, f.tx)
	require.NoError(t, err)
	var plain uint64
	for _, op := range p.ops {
		if len(op.Flags) == 0 {
			plain += state.ElementSize(op.Path, op.Key, op.Value)
		}
	}
	return plain * f.exec.pv.Fees.Schedule.StorageDiskUsageCreditPerByte
}

func TestBumpClampsToBalance(t *testing.T) {
	f := newFixture(t)
	alice := f.createIdentity("alice", 10000)
	bal := f.balance(alice)

	res := f.run(NewBump(0, alice, []nonce.Bump{{IdentityID: alice, Nonce: 3}}, bal+100))
	require.Equal(t, bal, res.ProcessingFee)
	require.Zero(t, f.balance(alice))
	n, err := f.drive.IdentityNonce(f.tx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
}

func TestBumpKinds(t *testing.T) {
	id := inter.DeriveIdentifier([]byte("x"))
	contract := inter.DeriveIdentifier([]byte("c"))
	a := NewBump(0, id, []nonce.Bump{{IdentityID: id, Nonce: 1}}, 0)
	require.IsType(t, &BumpIdentityNonce{}, a)
	b := NewBump(0, id, []nonce.Bump{{IdentityID: id, Contract: &contract, Nonce: 1}}, 0)
	require.IsType(t, &BumpIdentityContractNonce{}, b)
	require.True(t, IsBump(a) && IsBump(b))
	require.False(t, IsBump(NewDocumentsBatch(id, FeeInputs{})))
}
