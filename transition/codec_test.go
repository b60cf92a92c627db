package transition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
)

func sampleTransitions() []StateTransition {
	owner := inter.DeriveIdentifier([]byte("owner"))
	contract := inter.DeriveIdentifier([]byte("contract"))
	lock := dpp.AssetLockProof{
		Type:                  dpp.AssetLockChain,
		Amount:                100000,
		CoreChainLockedHeight: 10,
	}
	lock.OutPoint[0] = 1
	key := dpp.IdentityPublicKey{ID: 0, Type: dpp.KeyTypeECDSAHash160, Purpose: dpp.PurposeAuthentication, SecurityLevel: dpp.SecurityLevelMaster, Data: make([]byte, 20)}
	return []StateTransition{
		&IdentityCreateV0{AssetLock: lock, PublicKeys: []KeyInCreation{{Key: key, Signature: []byte{1, 2}}}, Signed: Signed{Sig: []byte{3}}},
		&IdentityTopUpV0{IdentityID: owner, AssetLock: lock, Signed: Signed{Sig: []byte{4}}},
		&IdentityUpdateV0{IdentityID: owner, Revision: 1, Nonce: 2, DisableKeys: []uint32{1}, Signed: Signed{KeyID: 0, Sig: []byte{5}}},
		&CreditTransferV0{IdentityID: owner, RecipientID: contract, Amount: 7, Nonce: 1, Signed: Signed{KeyID: 2, FeeIncrease: 10, Sig: []byte{6}}},
		&CreditWithdrawalV0{IdentityID: owner, Amount: 9, CoreFeePerByte: 1, OutputScript: []byte{0x76, 0xa9}, Nonce: 3, Signed: Signed{Sig: []byte{7}}},
		&ContractCreateV0{
			Contract: dpp.DataContract{
				ID: contract, OwnerID: owner, Version: 1,
				DocumentTypes: []dpp.DocumentType{{
					Name:       "note",
					Properties: []dpp.PropertyDef{{Name: "title", Type: dpp.PropertyString, Required: true, MaxLength: 64}},
					Indices:    []dpp.Index{{Name: "byTitle", Properties: []string{"title"}, Unique: true}},
					Mutable:    true,
				}},
				Tokens: []dpp.TokenConfiguration{{Position: 0, BaseSupply: 100, MaxSupply: 1000}},
			},
			Nonce: 1,
		},
		&DocumentsBatchV0{Owner: owner, Transitions: []DocumentTransition{{
			Action: DocumentCreate, ContractID: contract, DocumentType: "note", Nonce: 1,
			Fields: []dpp.Field{{Name: "title", Value: []byte("hi")}},
		}}},
		&TokensBatchV0{Owner: owner, Transitions: []TokenTransition{{Action: TokenMint, ContractID: contract, Nonce: 1, Amount: 5, Recipient: owner}}},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, st := range sampleTransitions() {
		t.Run(st.Kind().String(), func(t *testing.T) {
			require := require.New(t)
			raw, err := Encode(st)
			require.NoError(err)

			got, err := Decode(raw)
			require.NoError(err)
			require.Equal(st.Kind(), got.Kind())
			require.Equal(st.OwnerID(), got.OwnerID())
			require.Equal(st.Signature(), got.Signature())

			again, err := Encode(got)
			require.NoError(err)
			require.Equal(raw, again)
		})
	}
}

func TestCodecRejectsTrailingBytes(t *testing.T) {
	raw, err := Encode(sampleTransitions()[3])
	require.NoError(t, err)
	_, err = Decode(append(raw, 0))
	require.Error(t, err)
}

func TestCodecUnknownVersion(t *testing.T) {
	raw, err := Encode(sampleTransitions()[3])
	require.NoError(t, err)

	// the second byte starts the feature version
	bad := append([]byte(nil), raw...)
	bad[1] = 9
	_, err = Decode(bad)
	var uv *UnsupportedVersionError
	require.True(t, errors.As(err, &uv), "got %v", err)
	require.Equal(t, KindCreditTransfer, uv.Kind)

	bad[0] = 200
	_, err = Decode(bad)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestSignableExcludesSignatures(t *testing.T) {
	st := sampleTransitions()[0].(*IdentityCreateV0)
	before, err := st.SignableBytes()
	require.NoError(t, err)

	st.SetSignature([]byte{9, 9, 9})
	st.PublicKeys[0].Signature = []byte{8}
	after, err := st.SignableBytes()
	require.NoError(t, err)
	require.Equal(t, before, after)

	full, err := Encode(st)
	require.NoError(t, err)
	require.NotEqual(t, before, full)
}

func TestHashStable(t *testing.T) {
	raw, err := Encode(sampleTransitions()[1])
	require.NoError(t, err)
	require.Equal(t, Hash(raw), Hash(append([]byte(nil), raw...)))
}
