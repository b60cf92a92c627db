package drive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashpay/platform-sub039/crypto"
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

func commit(t *testing.T, d *Drive, ops []state.Op) {
	t.Helper()
	tx, err := d.Store().StartTransaction()
	require.NoError(t, err)
	_, err = d.Apply(tx, ops)
	require.NoError(t, err)
	require.NoError(t, d.Store().CommitTransaction(tx))
}

func testIdentity(seed string, balance uint64) *dpp.Identity {
	s := crypto.DeterministicSigner(seed)
	return &dpp.Identity{
		ID:       inter.DeriveIdentifier([]byte(seed)),
		Balance:  balance,
		Revision: 0,
		PublicKeys: []dpp.IdentityPublicKey{
			{ID: 0, Type: dpp.KeyTypeECDSASecp256k1, Purpose: dpp.PurposeAuthentication, SecurityLevel: dpp.SecurityLevelMaster, Data: s.PublicKey()},
		},
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	d := New(state.NewMemoryStore())
	alice := testIdentity("alice", 500)
	ops, err := CreateIdentityOps(alice)
	require.NoError(t, err)
	commit(t, d, append(ops, SetNonceOp(alice.ID, 3), SetContractNonceOp(alice.ID, inter.DeriveIdentifier([]byte("c")), 9)))

	got, err := d.FetchIdentity(nil, alice.ID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)
	require.Equal(t, uint64(500), got.Balance)
	require.Len(t, got.PublicKeys, 1)
	require.Equal(t, alice.PublicKeys[0].Data, got.PublicKeys[0].Data)

	nonce, err := d.IdentityNonce(nil, alice.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(3), nonce)
	cnonce, err := d.IdentityContractNonce(nil, alice.ID, inter.DeriveIdentifier([]byte("c")))
	require.NoError(t, err)
	require.Equal(t, uint64(9), cnonce)

	owner, ok, err := d.KeyHashOwner(nil, alice.PublicKeys[0].Hash())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, alice.ID, owner)

	missing, err := d.FetchIdentity(nil, inter.DeriveIdentifier([]byte("nobody")))
	require.NoError(t, err)
	require.Nil(t, missing)
}

func noteType() *dpp.DocumentType {
	return &dpp.DocumentType{
		Name:       "note",
		Properties: []dpp.PropertyDef{{Name: "title", Type: dpp.PropertyString, Required: true, MaxLength: 64}},
		Indices: []dpp.Index{
			{Name: "byTitle", Properties: []string{"title"}, Unique: true},
			{Name: "byTitleAll", Properties: []string{"title"}},
		},
		Mutable: true,
	}
}

func TestDocumentIndices(t *testing.T) {
	d := New(state.NewMemoryStore())
	contract := inter.DeriveIdentifier([]byte("contract"))
	dt := noteType()
	doc := &dpp.Document{ID: inter.DeriveIdentifier([]byte("doc")), OwnerID: inter.DeriveIdentifier([]byte("o")), Revision: 1}
	doc.Set("title", []byte("hello"))
	flags := dpp.StorageFlags{OwnerID: doc.OwnerID, EpochIndex: 0, Bytes: 10}

	ops, err := InsertDocumentOps(contract, dt, doc, flags.Encode())
	require.NoError(t, err)
	commit(t, d, ops)

	stored, err := d.FetchDocument(nil, contract, "note", doc.ID)
	require.NoError(t, err)
	require.Equal(t, flags, *stored.Flags)

	key, _ := dpp.IndexKey(doc, &dt.Indices[0])
	holder, ok, err := d.UniqueIndexDocument(nil, contract, "note", "byTitle", key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, doc.ID, holder)

	updated := doc.Copy()
	updated.Set("title", []byte("world"))
	updated.Revision = 2
	ops, err = ReplaceDocumentOps(contract, dt, doc, &updated, flags.Encode())
	require.NoError(t, err)
	commit(t, d, ops)

	_, ok, err = d.UniqueIndexDocument(nil, contract, "note", "byTitle", key)
	require.NoError(t, err)
	require.False(t, ok)
	newKey, _ := dpp.IndexKey(&updated, &dt.Indices[0])
	_, ok, err = d.UniqueIndexDocument(nil, contract, "note", "byTitle", newKey)
	require.NoError(t, err)
	require.True(t, ok)

	commit(t, d, DeleteDocumentOps(contract, dt, &updated))
	stored, err = d.FetchDocument(nil, contract, "note", doc.ID)
	require.NoError(t, err)
	require.Nil(t, stored)
	ids, err := d.DocumentsByIndex(nil, contract, "note", "byTitleAll", 0)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestTotalCredits(t *testing.T) {
	d := New(state.NewMemoryStore())
	ops := []state.Op{
		SetBalanceOp(inter.DeriveIdentifier([]byte("a")), 100),
		SetBalanceOp(inter.DeriveIdentifier([]byte("b")), 50),
		SetProcessingPoolOp(7),
		SetCarryOp(3),
		SetSystemCreditsOp(170),
	}
	bucket, ok := SetStorageBucketOp(inter.MustEpoch(2), 10, false)
	require.True(t, ok)
	commit(t, d, append(ops, bucket))

	total, err := d.TotalCredits(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(170), total)
	require.NoError(t, d.VerifyConservation(nil))

	commit(t, d, []state.Op{SetSystemCreditsOp(171)})
	err = d.VerifyConservation(nil)
	require.True(t, platform.IsFatal(err))

	_, ok = SetStorageBucketOp(inter.MustEpoch(3), 0, false)
	require.False(t, ok)
}

func TestCorruptedCounter(t *testing.T) {
	d := New(state.NewMemoryStore())
	id := inter.DeriveIdentifier([]byte("a"))
	commit(t, d, []state.Op{state.Insert(BalancesPath, id.Bytes(), []byte{1, 2})})

	_, err := d.Balance(nil, id)
	var cse *platform.CorruptedStateError
	require.ErrorAs(t, err, &cse)
}

func TestQueues(t *testing.T) {
	d := New(state.NewMemoryStore())
	w := &dpp.Withdrawal{IdentityID: inter.DeriveIdentifier([]byte("a")), Amount: 10, OutputScript: []byte{0x76}}
	ops, err := QueueWithdrawalOps(0, w)
	require.NoError(t, err)
	commit(t, d, ops)

	next, err := d.NextWithdrawalIndex(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), next)
	ws, err := d.Withdrawals(nil, 0)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	require.Equal(t, uint64(10), ws[0].Amount)

	ops, err = HistoryOps(0, []dpp.HistoryRecord{{Kind: dpp.HistoryTokenMint, Amount: 1}, {Kind: dpp.HistoryTokenBurn, Amount: 2}})
	require.NoError(t, err)
	commit(t, d, ops)
	recs, err := d.History(nil, 1, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, dpp.HistoryTokenBurn, recs[0].Kind)

	var out [dpp.OutPointLength]byte
	out[0] = 1
	spent, err := d.AssetLockSpent(nil, out)
	require.NoError(t, err)
	require.False(t, spent)
	commit(t, d, []state.Op{SpendAssetLockOp(out, w.IdentityID)})
	spent, err = d.AssetLockSpent(nil, out)
	require.NoError(t, err)
	require.True(t, spent)
}
