package validation

import (
	"context"

	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/crypto"
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/fees"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
	"github.com/dashpay/platform-sub039/utils/checked"
)

// authorization is what the signature stage established.
type authorization struct {
	// identity is nil for identity creation.
	identity      *dpp.Identity
	signatureCost uint64
	inputBytes    uint64
	// credits is the asset lock value for create and top-up.
	credits uint64
}

type keyRequirement struct {
	purpose dpp.Purpose
	levels  []dpp.SecurityLevel
}

func (r keyRequirement) allows(level dpp.SecurityLevel) bool {
	for _, l := range r.levels {
		if l == level {
			return true
		}
	}
	return false
}

var keyRequirements = map[transition.Kind]keyRequirement{
	transition.KindIdentityUpdate:   {dpp.PurposeAuthentication, []dpp.SecurityLevel{dpp.SecurityLevelMaster}},
	transition.KindCreditTransfer:   {dpp.PurposeTransfer, []dpp.SecurityLevel{dpp.SecurityLevelCritical}},
	transition.KindCreditWithdrawal: {dpp.PurposeWithdraw, []dpp.SecurityLevel{dpp.SecurityLevelCritical, dpp.SecurityLevelMaster}},
	transition.KindContractCreate:   {dpp.PurposeAuthentication, []dpp.SecurityLevel{dpp.SecurityLevelCritical, dpp.SecurityLevelHigh}},
	transition.KindContractUpdate:   {dpp.PurposeAuthentication, []dpp.SecurityLevel{dpp.SecurityLevelCritical, dpp.SecurityLevelHigh}},
	transition.KindDocumentsBatch:   {dpp.PurposeAuthentication, []dpp.SecurityLevel{dpp.SecurityLevelCritical, dpp.SecurityLevelHigh, dpp.SecurityLevelMedium}},
	transition.KindTokensBatch:      {dpp.PurposeAuthentication, []dpp.SecurityLevel{dpp.SecurityLevelCritical, dpp.SecurityLevelHigh}},
}

// verifyKey checks sig over signable with key.
func (v *Validator) verifyKey(key *dpp.IdentityPublicKey, signable, sig []byte) error {
	switch key.Type {
	case dpp.KeyTypeBLS12381:
		return v.cfg.Verifier.VerifyBLS(key.Data, signable, sig)
	case dpp.KeyTypeECDSAHash160:
		return v.cfg.Verifier.VerifyHash160(key.Data, crypto.Digest(signable), sig)
	default:
		return v.cfg.Verifier.VerifySecp256k1(key.Data, crypto.Digest(signable), sig)
	}
}

func (v *Validator) signable(st transition.StateTransition) ([]byte, uint64, *consensus.Error) {
	signable, err := st.SignableBytes()
	if err != nil {
		return nil, 0, consensus.New(consensus.InvalidEncoding, consensus.Text("reason", err.Error()))
	}
	raw, err := transition.Encode(st)
	if err != nil {
		return nil, 0, consensus.New(consensus.InvalidEncoding, consensus.Text("reason", err.Error()))
	}
	return signable, uint64(len(raw)), nil
}

// verifyNewKeys proves possession of every key being added.
func (v *Validator) verifyNewKeys(keys []transition.KeyInCreation, signable []byte, auth *authorization) ([]*consensus.Error, error) {
	var out []*consensus.Error
	for i := range keys {
		k := &keys[i]
		if err := v.verifyKey(&k.Key, signable, k.Signature); err != nil {
			out = append(out, consensus.New(consensus.InvalidSignature, consensus.Uint("key", uint64(k.Key.ID)), consensus.Text("reason", err.Error())))
			continue
		}
		var err error
		if auth.signatureCost, err = checked.Add(auth.signatureCost, fees.SignatureCost(k.Key.Type, v.pv.Fees.Schedule)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// identitySignedV0 authenticates transitions signed by an existing
// identity key.
func identitySignedV0(ctx context.Context, v *Validator, st transition.StateTransition, info inter.BlockInfo, tx state.Transaction) (*authorization, []*consensus.Error, error) {
	owner := st.OwnerID()
	identity, err := v.drive.FetchIdentity(tx, owner)
	if err != nil {
		return nil, nil, err
	}
	if identity == nil {
		return nil, []*consensus.Error{consensus.New(consensus.IdentityNotFound, consensus.ID("identity", owner))}, nil
	}
	keyID := st.SignaturePublicKeyID()
	key, ok := identity.Key(keyID)
	if !ok {
		return nil, []*consensus.Error{consensus.New(consensus.PublicKeyNotFound, consensus.ID("identity", owner), consensus.Uint("key", uint64(keyID)))}, nil
	}
	if key.IsDisabled() {
		return nil, []*consensus.Error{consensus.New(consensus.PublicKeyDisabled, consensus.Uint("key", uint64(keyID)), consensus.Uint("disabled_at", key.DisabledAt))}, nil
	}
	req := keyRequirements[st.Kind()]
	if key.Purpose != req.purpose {
		return nil, []*consensus.Error{consensus.New(consensus.InvalidSignaturePublicKeyPurpose,
			consensus.Uint("key", uint64(keyID)),
			consensus.Text("purpose", key.Purpose.String()),
			consensus.Text("required", req.purpose.String()))}, nil
	}
	if !req.allows(key.SecurityLevel) {
		return nil, []*consensus.Error{consensus.New(consensus.InvalidSignaturePublicKeySecurityLevel,
			consensus.Uint("key", uint64(keyID)),
			consensus.Text("level", key.SecurityLevel.String()))}, nil
	}

	signable, size, cerr := v.signable(st)
	if cerr != nil {
		return nil, []*consensus.Error{cerr}, nil
	}
	if err := v.verifyKey(key, signable, st.Signature()); err != nil {
		return nil, []*consensus.Error{consensus.New(consensus.InvalidSignature, consensus.Uint("key", uint64(keyID)), consensus.Text("reason", err.Error()))}, nil
	}
	auth := &authorization{
		identity:      identity,
		signatureCost: fees.SignatureCost(key.Type, v.pv.Fees.Schedule),
		inputBytes:    size,
	}
	if t, ok := st.(*transition.IdentityUpdateV0); ok {
		errs, err := v.verifyNewKeys(t.AddKeys, signable, auth)
		if err != nil || len(errs) > 0 {
			return nil, errs, err
		}
	}
	return auth, nil, nil
}

// verifyFunding checks the asset lock and the signature of its credit key.
func (v *Validator) verifyFunding(ctx context.Context, st transition.StateTransition, proof *dpp.AssetLockProof, info inter.BlockInfo, tx state.Transaction) (*authorization, []byte, []*consensus.Error, error) {
	signable, size, cerr := v.signable(st)
	if cerr != nil {
		return nil, nil, []*consensus.Error{cerr}, nil
	}
	if err := v.cfg.Verifier.VerifyHash160(proof.CreditPubKeyHash[:], crypto.Digest(signable), st.Signature()); err != nil {
		return nil, nil, []*consensus.Error{consensus.New(consensus.InvalidSignature, consensus.Text("reason", err.Error()))}, nil
	}
	credits, cerr, err := v.verifyAssetLock(ctx, proof, info, tx)
	if err != nil || cerr != nil {
		return nil, nil, consensusErrs(cerr), err
	}
	return &authorization{
		signatureCost: v.pv.Fees.Schedule.EcdsaHash160VerifyCost,
		inputBytes:    size,
		credits:       credits,
	}, signable, nil, nil
}

func identityCreateSignatureV0(ctx context.Context, v *Validator, st transition.StateTransition, info inter.BlockInfo, tx state.Transaction) (*authorization, []*consensus.Error, error) {
	t := st.(*transition.IdentityCreateV0)
	auth, signable, errs, err := v.verifyFunding(ctx, st, &t.AssetLock, info, tx)
	if err != nil || len(errs) > 0 {
		return nil, errs, err
	}
	errs, err = v.verifyNewKeys(t.PublicKeys, signable, auth)
	if err != nil || len(errs) > 0 {
		return nil, errs, err
	}
	return auth, nil, nil
}

func identityTopUpSignatureV0(ctx context.Context, v *Validator, st transition.StateTransition, info inter.BlockInfo, tx state.Transaction) (*authorization, []*consensus.Error, error) {
	t := st.(*transition.IdentityTopUpV0)
	exists, err := v.drive.IdentityExists(tx, t.IdentityID)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, []*consensus.Error{consensus.New(consensus.IdentityNotFound, consensus.ID("identity", t.IdentityID))}, nil
	}
	auth, _, errs, err := v.verifyFunding(ctx, st, &t.AssetLock, info, tx)
	return auth, errs, err
}

func consensusErrs(e *consensus.Error) []*consensus.Error {
	if e == nil {
		return nil
	}
	return []*consensus.Error{e}
}
