package validation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/dashpay/platform-sub039/action"
	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/crypto"
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
)

const (
	keyMaster uint32 = iota
	keyTransfer
	keyWithdraw
	keyHigh
)

type fixture struct {
	t         *testing.T
	pv        platform.PlatformVersion
	drive     *drive.Drive
	contracts *drive.ContractCache
	exec      *action.Executor
	v         *Validator
	tx        state.Transaction
	info      inter.BlockInfo
	signers   map[inter.Identifier][]*crypto.Signer
}

func newFixture(t *testing.T, cfg Config) *fixture {
	store := state.NewMemoryStore()
	tx, err := store.StartTransaction()
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	if cfg.Log == nil {
		cfg.Log = log
	}
	f := &fixture{
		t:       t,
		pv:      platform.FakeNetV1(),
		drive:   drive.New(store),
		tx:      tx,
		info:    inter.BlockInfo{Height: 2, Time: 60000, Epoch: inter.MustEpoch(0), CoreChainLockedHeight: 100},
		signers: make(map[inter.Identifier][]*crypto.Signer),
	}
	f.contracts = drive.NewContractCache(f.drive)
	f.exec = action.NewExecutor(f.drive, &f.pv, log.WithField("module", "action"))
	f.v, err = Resolve(&f.pv, f.drive, f.contracts, f.exec, cfg)
	require.NoError(t, err)
	return f
}

// identity registers an identity with one key per signing role.
func (f *fixture) identity(name string, credits uint64) inter.Identifier {
	id := inter.DeriveIdentifier([]byte(name))
	roles := []struct {
		purpose dpp.Purpose
		level   dpp.SecurityLevel
	}{
		keyMaster:   {dpp.PurposeAuthentication, dpp.SecurityLevelMaster},
		keyTransfer: {dpp.PurposeTransfer, dpp.SecurityLevelCritical},
		keyWithdraw: {dpp.PurposeWithdraw, dpp.SecurityLevelCritical},
		keyHigh:     {dpp.PurposeAuthentication, dpp.SecurityLevelHigh},
	}
	identity := dpp.Identity{ID: id}
	for i, r := range roles {
		s := crypto.DeterministicSigner(fmt.Sprintf("%s/%d", name, i))
		f.signers[id] = append(f.signers[id], s)
		identity.PublicKeys = append(identity.PublicKeys, dpp.IdentityPublicKey{
			ID:            uint32(i),
			Type:          dpp.KeyTypeECDSASecp256k1,
			Purpose:       r.purpose,
			SecurityLevel: r.level,
			Data:          s.PublicKey(),
		})
	}
	var outPoint [dpp.OutPointLength]byte
	copy(outPoint[:], name)
	_, err := f.exec.Execute(context.Background(), action.NewIdentityCreate(identity, outPoint, credits, action.FeeInputs{}), f.info, f.tx)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) sign(st transition.StateTransition, owner inter.Identifier, key uint32) transition.StateTransition {
	signable, err := st.SignableBytes()
	require.NoError(f.t, err)
	st.SetSignature(f.signers[owner][key].Sign(signable))
	return st
}

func (f *fixture) process(st transition.StateTransition) Result {
	res, err := f.v.Process(context.Background(), st, f.info, f.tx)
	require.NoError(f.t, err)
	return res
}

// apply processes st and executes whatever action it yields.
func (f *fixture) apply(st transition.StateTransition) Result {
	res := f.process(st)
	if res.Data != nil {
		_, err := f.exec.Execute(context.Background(), res.Data, f.info, f.tx)
		require.NoError(f.t, err)
		switch a := res.Data.(type) {
		case *action.ContractCreate:
			f.contracts.Put(a.Contract)
		case *action.ContractUpdate:
			f.contracts.Put(a.Contract)
		}
	}
	return res
}

func (f *fixture) balance(id inter.Identifier) uint64 {
	b, err := f.drive.Balance(f.tx, id)
	require.NoError(f.t, err)
	return b
}

func requireCode(t *testing.T, res Result, code consensus.Code) {
	t.Helper()
	require.False(t, res.IsValid())
	require.Equal(t, code, res.FirstError().Code, "got %v", res.FirstError())
}

func transfer(from, to inter.Identifier, amount, n uint64) *transition.CreditTransferV0 {
	return &transition.CreditTransferV0{
		IdentityID:  from,
		RecipientID: to,
		Amount:      amount,
		Nonce:       n,
		Signed:      transition.Signed{KeyID: keyTransfer},
	}
}

func TestTransferAcceptedThenReplayRejected(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 100000)
	bob := f.identity("bob", 100000)
	st := f.sign(transfer(alice, bob, 500, 1), alice, keyTransfer)
	bobBefore := f.balance(bob)

	res := f.apply(st)
	require.True(t, res.IsValid())
	require.Equal(t, bobBefore+500, f.balance(bob))

	before := f.balance(alice)
	res = f.apply(st)
	requireCode(t, res, consensus.NonceAlreadyUsed)
	require.Nil(t, res.Data)
	require.Equal(t, before, f.balance(alice))
}

func TestSignatureFailuresNeverBump(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 100000)
	bob := f.identity("bob", 100000)

	wrongPurpose := transfer(alice, bob, 500, 1)
	wrongPurpose.KeyID = keyMaster
	res := f.process(f.sign(wrongPurpose, alice, keyMaster))
	requireCode(t, res, consensus.InvalidSignaturePublicKeyPurpose)
	require.Nil(t, res.Data)

	forged := f.sign(transfer(alice, bob, 500, 1), bob, keyTransfer)
	res = f.process(forged)
	requireCode(t, res, consensus.InvalidSignature)
	require.Nil(t, res.Data)

	missing := f.sign(transfer(alice, bob, 500, 1), alice, keyTransfer)
	missing.(*transition.CreditTransferV0).KeyID = 42
	requireCode(t, f.process(missing), consensus.PublicKeyNotFound)
}

func TestIdempotentRejection(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 100000)
	bob := f.identity("bob", 100000)
	nonce := func() uint64 {
		n, err := f.drive.IdentityNonce(f.tx, alice)
		require.NoError(t, err)
		return n
	}
	before := f.balance(alice)

	forged := f.sign(transfer(alice, bob, 500, 1), bob, keyTransfer)
	for i := 0; i < 2; i++ {
		res := f.apply(forged)
		requireCode(t, res, consensus.InvalidSignature)
		require.Nil(t, res.Data)
		require.Zero(t, nonce())
		require.Equal(t, before, f.balance(alice))
		f.info.Height++
	}

	res := f.apply(f.sign(transfer(alice, bob, 500, 1), alice, keyTransfer))
	require.True(t, res.IsValid(), "%v", res.Errors)
	require.Equal(t, uint64(1), nonce())
	require.Less(t, f.balance(alice), before-500+1)
}

func TestStructureFailureBumpsAuthenticatedNonce(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 100000)
	bob := f.identity("bob", 100000)

	before := f.balance(alice)
	res := f.apply(f.sign(transfer(alice, bob, 0, 1), alice, keyTransfer))
	requireCode(t, res, consensus.InvalidAmount)
	bump, ok := res.Data.(*action.BumpIdentityNonce)
	require.True(t, ok)
	require.Equal(t, f.pv.Fees.Schedule.BumpNonceFee, bump.Charge)
	require.Equal(t, before-f.pv.Fees.Schedule.BumpNonceFee, f.balance(alice))

	n, err := f.drive.IdentityNonce(f.tx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)
}

func TestWithdrawalWithInsufficientBalanceConsumesNonceOnly(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 100000)
	before := f.balance(alice)
	st := f.sign(&transition.CreditWithdrawalV0{
		IdentityID:     alice,
		Amount:         before,
		CoreFeePerByte: 1,
		OutputScript:   []byte{0x76, 0xa9},
		Nonce:          1,
		Signed:         transition.Signed{KeyID: keyWithdraw},
	}, alice, keyWithdraw)

	res := f.apply(st)
	// the whole balance is withdrawn and only the fee is missing
	requireCode(t, res, consensus.InsufficientBalance)
	require.Contains(t, res.FirstError().Error(), fmt.Sprintf("balance=%d", before))
	bump, ok := res.Data.(*action.BumpIdentityNonce)
	require.True(t, ok)
	require.Zero(t, bump.Charge)
	require.Equal(t, before, f.balance(alice))

	n, err := f.drive.IdentityNonce(f.tx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)
	queued, err := f.drive.Withdrawals(f.tx, 0)
	require.NoError(t, err)
	require.Empty(t, queued)

	requireCode(t, f.process(st), consensus.NonceAlreadyUsed)
}

func TestIdentityUpdate(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 1000000)
	update := func(revision, n uint64, disable ...uint32) transition.StateTransition {
		st := &transition.IdentityUpdateV0{
			IdentityID: alice,
			Revision:   revision,
			Nonce:      n,
			AddKeys: []transition.KeyInCreation{{Key: dpp.IdentityPublicKey{
				ID: uint32(10 + n), Type: dpp.KeyTypeECDSASecp256k1, Purpose: dpp.PurposeAuthentication,
				SecurityLevel: dpp.SecurityLevelHigh, Data: crypto.DeterministicSigner(fmt.Sprint("alice/extra", n)).PublicKey(),
			}}},
			DisableKeys: disable,
			Signed:      transition.Signed{KeyID: keyMaster},
		}
		signable, err := st.SignableBytes()
		require.NoError(t, err)
		st.AddKeys[0].Signature = crypto.DeterministicSigner(fmt.Sprint("alice/extra", n)).Sign(signable)
		return f.sign(st, alice, keyMaster)
	}

	requireCode(t, f.process(update(5, 1)), consensus.InvalidIdentityRevision)
	requireCode(t, f.process(update(1, 1, keyMaster)), consensus.MasterKeyCannotBeDisabled)

	res := f.apply(update(1, 1, keyHigh))
	require.True(t, res.IsValid(), "%v", res.Errors)
	identity, err := f.drive.FetchIdentity(f.tx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), identity.Revision)
	k, ok := identity.Key(keyHigh)
	require.True(t, ok)
	require.Equal(t, uint64(f.info.Time), k.DisabledAt)
	_, ok = identity.Key(11)
	require.True(t, ok)

	requireCode(t, f.process(update(2, 2, keyHigh)), consensus.PublicKeyDisabled)
}

func noteContract(owner inter.Identifier, n uint64) dpp.DataContract {
	return dpp.DataContract{
		ID:      dpp.ContractID(owner, n),
		OwnerID: owner,
		Version: 1,
		DocumentTypes: []dpp.DocumentType{{
			Name:         "note",
			Properties:   []dpp.PropertyDef{{Name: "title", Type: dpp.PropertyString, Required: true, MaxLength: 64}},
			Indices:      []dpp.Index{{Name: "byTitle", Properties: []string{"title"}, Unique: true}},
			Mutable:      true,
			CanBeDeleted: true,
			Transferable: true,
			Tradeable:    true,
		}},
		Tokens: []dpp.TokenConfiguration{{Position: 0, BaseSupply: 100, MaxSupply: 150}},
	}
}

func (f *fixture) deployNotes(owner inter.Identifier) dpp.DataContract {
	c := noteContract(owner, 1)
	res := f.apply(f.sign(&transition.ContractCreateV0{Contract: c, Nonce: 1, Signed: transition.Signed{KeyID: keyHigh}}, owner, keyHigh))
	require.True(f.t, res.IsValid(), "%v", res.Errors)
	return c
}

func createNote(c dpp.DataContract, owner inter.Identifier, n uint64, title string) transition.DocumentTransition {
	var entropy [32]byte
	copy(entropy[:], fmt.Sprint(owner, n, title))
	return transition.DocumentTransition{
		Action:       transition.DocumentCreate,
		ContractID:   c.ID,
		DocumentType: "note",
		DocumentID:   dpp.DocumentID(c.ID, owner, "note", entropy[:]),
		Nonce:        n,
		Entropy:      entropy,
		Fields:       []dpp.Field{{Name: "title", Value: []byte(title)}},
	}
}

func (f *fixture) batch(owner inter.Identifier, ds ...transition.DocumentTransition) transition.StateTransition {
	return f.sign(&transition.DocumentsBatchV0{Owner: owner, Transitions: ds, Signed: transition.Signed{KeyID: keyHigh}}, owner, keyHigh)
}

func TestContractUpdateChecks(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 10000000)
	c := f.deployNotes(alice)

	again := &transition.ContractUpdateV0{Contract: c, Nonce: 1, Signed: transition.Signed{KeyID: keyHigh}}
	again.Contract.Version = 3
	requireCode(t, f.process(f.sign(again, alice, keyHigh)), consensus.InvalidDataContractVersion)

	next := c
	next.Version = 2
	next.DocumentTypes = nil
	upd := &transition.ContractUpdateV0{Contract: next, Nonce: 1, Signed: transition.Signed{KeyID: keyHigh}}
	requireCode(t, f.process(f.sign(upd, alice, keyHigh)), consensus.IncompatibleDataContractUpdate)
}

func TestDuplicateUniqueIndexInSameBlock(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 10000000)
	bob := f.identity("bob", 10000000)
	c := f.deployNotes(alice)

	res := f.apply(f.batch(alice, createNote(c, alice, 1, "hello")))
	require.True(t, res.IsValid(), "%v", res.Errors)

	res = f.apply(f.batch(bob, createNote(c, bob, 1, "hello")))
	requireCode(t, res, consensus.DuplicateUniqueIndex)
	bump, ok := res.Data.(*action.BumpIdentityContractNonce)
	require.True(t, ok)
	require.Equal(t, c.ID, *bump.Bumps[0].Contract)

	res = f.process(f.batch(bob, createNote(c, bob, 2, "same"), createNote(c, bob, 3, "same")))
	requireCode(t, res, consensus.DuplicateUniqueIndex)
}

func TestDocumentLifecycle(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 10000000)
	bob := f.identity("bob", 10000000)
	c := f.deployNotes(alice)
	create := createNote(c, alice, 1, "for sale")
	require.True(t, f.apply(f.batch(alice, create)).IsValid())

	price := transition.DocumentTransition{
		Action: transition.DocumentUpdatePrice, ContractID: c.ID, DocumentType: "note",
		DocumentID: create.DocumentID, Nonce: 2, Revision: 2, Price: 700,
	}
	require.True(t, f.apply(f.batch(alice, price)).IsValid())

	buy := transition.DocumentTransition{
		Action: transition.DocumentPurchase, ContractID: c.ID, DocumentType: "note",
		DocumentID: create.DocumentID, Nonce: 1, Revision: 3, Price: 600,
	}
	requireCode(t, f.process(f.batch(bob, buy)), consensus.DocumentPriceMismatch)

	aliceBefore := f.balance(alice)
	buy.Price = 700
	res := f.apply(f.batch(bob, buy))
	require.True(t, res.IsValid(), "%v", res.Errors)
	require.GreaterOrEqual(t, f.balance(alice), aliceBefore+700)

	stored, err := f.drive.FetchDocument(f.tx, c.ID, "note", create.DocumentID)
	require.NoError(t, err)
	require.Equal(t, bob, stored.Document.OwnerID)
	require.Zero(t, stored.Document.Price)

	del := transition.DocumentTransition{
		Action: transition.DocumentDelete, ContractID: c.ID, DocumentType: "note",
		DocumentID: create.DocumentID, Nonce: 3,
	}
	requireCode(t, f.process(f.batch(alice, del)), consensus.DocumentOwnerMismatch)
	del.Nonce = 2
	require.True(t, f.apply(f.batch(bob, del)).IsValid())

	// the title is free again
	require.True(t, f.apply(f.batch(alice, createNote(c, alice, 3, "for sale"))).IsValid())
}

func TestDocumentFieldsValidatedAgainstType(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 10000000)
	c := f.deployNotes(alice)

	d := createNote(c, alice, 1, "x")
	d.Fields = []dpp.Field{{Name: "body", Value: []byte("x")}}
	requireCode(t, f.process(f.batch(alice, d)), consensus.InvalidDocumentStructure)

	d.DocumentType = "missing"
	d.DocumentID = dpp.DocumentID(c.ID, alice, "missing", d.Entropy[:])
	requireCode(t, f.process(f.batch(alice, d)), consensus.DocumentTypeNotFound)
}

func TestTokens(t *testing.T) {
	f := newFixture(t, Config{})
	alice := f.identity("alice", 10000000)
	bob := f.identity("bob", 10000000)
	c := f.deployNotes(alice)
	token := dpp.TokenID(c.ID, 0)
	tokens := func(owner inter.Identifier, ts ...transition.TokenTransition) transition.StateTransition {
		return f.sign(&transition.TokensBatchV0{Owner: owner, Transitions: ts, Signed: transition.Signed{KeyID: keyHigh}}, owner, keyHigh)
	}
	op := func(a transition.TokenAction, n, amount uint64, to inter.Identifier) transition.TokenTransition {
		return transition.TokenTransition{Action: a, ContractID: c.ID, Nonce: n, Amount: amount, Recipient: to}
	}

	requireCode(t, f.process(tokens(bob, op(transition.TokenMint, 1, 10, bob))), consensus.TokenUnauthorized)
	requireCode(t, f.process(tokens(alice, op(transition.TokenMint, 1, 51, alice))), consensus.TokenMaxSupplyExceeded)

	res := f.apply(tokens(alice,
		op(transition.TokenMint, 1, 50, alice),
		op(transition.TokenTransfer, 2, 120, bob),
	))
	require.True(t, res.IsValid(), "%v", res.Errors)
	ab, err := f.drive.TokenBalance(f.tx, token, alice)
	require.NoError(t, err)
	bb, err := f.drive.TokenBalance(f.tx, token, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(30), ab)
	require.Equal(t, uint64(120), bb)

	require.True(t, f.apply(tokens(alice, op(transition.TokenFreeze, 3, 0, bob))).IsValid())
	requireCode(t, f.process(tokens(bob, op(transition.TokenTransfer, 1, 1, alice))), consensus.TokenAccountFrozen)
	requireCode(t, f.process(tokens(bob, op(transition.TokenBurn, 1, 1, inter.Identifier{}))), consensus.TokenAccountFrozen)

	supply, err := f.drive.TokenSupply(f.tx, token)
	require.NoError(t, err)
	require.Equal(t, uint64(150), supply)
}

type slowLocks struct{}

func (slowLocks) VerifyAssetLock(ctx context.Context, _ *dpp.AssetLockProof) error {
	<-ctx.Done()
	return ctx.Err()
}

type rejectLocks struct{}

func (rejectLocks) VerifyAssetLock(context.Context, *dpp.AssetLockProof) error {
	return errors.New("unknown outpoint")
}

func identityCreate(t *testing.T, funder *crypto.Signer, keys ...*crypto.Signer) *transition.IdentityCreateV0 {
	st := &transition.IdentityCreateV0{AssetLock: dpp.AssetLockProof{
		Type:             dpp.AssetLockInstant,
		Amount:           100,
		CreditPubKeyHash: funder.PublicKeyHash(),
		InstantLock:      []byte{1},
	}}
	copy(st.AssetLock.OutPoint[:], "lock")
	for i, k := range keys {
		level := dpp.SecurityLevelHigh
		if i == 0 {
			level = dpp.SecurityLevelMaster
		}
		st.PublicKeys = append(st.PublicKeys, transition.KeyInCreation{Key: dpp.IdentityPublicKey{
			ID: uint32(i), Type: dpp.KeyTypeECDSASecp256k1, SecurityLevel: level, Data: k.PublicKey(),
		}})
	}
	signable, err := st.SignableBytes()
	require.NoError(t, err)
	for i, k := range keys {
		st.PublicKeys[i].Signature = k.Sign(signable)
	}
	st.SetSignature(funder.Sign(signable))
	return st
}

func TestIdentityCreateFromAssetLock(t *testing.T) {
	f := newFixture(t, Config{})
	funder := crypto.DeterministicSigner("funder")
	st := identityCreate(t, funder, crypto.DeterministicSigner("k0"), crypto.DeterministicSigner("k1"))

	res := f.apply(st)
	require.True(t, res.IsValid(), "%v", res.Errors)
	id := st.OwnerID()
	require.NotZero(t, f.balance(id))
	require.Less(t, f.balance(id), 100*f.pv.Limits.CreditsPerDuff)

	requireCode(t, f.process(st), consensus.AssetLockAlreadySpent)
}

func TestIdentityCreateRejectsUnprovenKey(t *testing.T) {
	f := newFixture(t, Config{})
	st := identityCreate(t, crypto.DeterministicSigner("funder"), crypto.DeterministicSigner("k0"))
	st.PublicKeys[0].Signature = crypto.DeterministicSigner("other").Sign([]byte("x"))
	requireCode(t, f.process(st), consensus.InvalidSignature)
}

func TestAssetLockVerifierFailures(t *testing.T) {
	for name, cfg := range map[string]Config{
		"timeout":  {AssetLocks: slowLocks{}, AssetLockTimeout: 10 * time.Millisecond},
		"rejected": {AssetLocks: rejectLocks{}},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, cfg)
			st := identityCreate(t, crypto.DeterministicSigner("funder"), crypto.DeterministicSigner("k0"))
			res := f.process(st)
			requireCode(t, res, consensus.AssetLockVerificationFailed)
			require.Nil(t, res.Data)
		})
	}
}

func TestPreValidateKeepsOrder(t *testing.T) {
	f := newFixture(t, Config{Parallelism: 2})
	a := inter.DeriveIdentifier([]byte("a"))
	b := inter.DeriveIdentifier([]byte("b"))
	sts := []transition.StateTransition{
		transfer(a, b, 1, 1),
		transfer(a, a, 1, 1),
		transfer(a, b, 0, 1),
		transfer(a, b, 1, 0),
	}
	out, err := f.v.PreValidate(context.Background(), sts)
	require.NoError(t, err)
	require.Len(t, out, 4)
	require.Empty(t, out[0])
	require.Equal(t, consensus.SelfTransfer, out[1][0].Code)
	require.Equal(t, consensus.InvalidAmount, out[2][0].Code)
	require.Equal(t, consensus.NonceOutOfBounds, out[3][0].Code)
}
