package validation

import (
	"github.com/dashpay/platform-sub039/action"
	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/nonce"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
	"github.com/dashpay/platform-sub039/utils/checked"
)

func invalid(code consensus.Code, params ...consensus.Param) Result {
	return consensus.Invalid[action.Action](consensus.New(code, params...))
}

// identityNonce validates the identity nonce st claims.
func (v *Validator) identityNonce(st transition.StateTransition, tx state.Transaction) (consensus.ValidationResult[nonce.Bump], error) {
	return v.nonces.ValidateIdentityNonce(tx, st.OwnerID(), st.(transition.IdentityNonced).IdentityNonce())
}

// requireBalance prices act and checks that available covers outgoing
// plus the fee, never less than minFee.
func (v *Validator) requireBalance(act action.Action, info inter.BlockInfo, tx state.Transaction, available, outgoing, minFee uint64) (*consensus.Error, error) {
	est, err := v.exec.Estimate(act, info, tx)
	if err != nil {
		return nil, err
	}
	fee, err := est.TotalCharged()
	if err != nil {
		return nil, err
	}
	if fee < minFee {
		fee = minFee
	}
	required, err := checked.Add(outgoing, fee)
	if err != nil {
		return nil, err
	}
	if available < required {
		return consensus.New(consensus.InsufficientBalance,
			consensus.ID("identity", act.Payer()),
			consensus.Uint("balance", available),
			consensus.Uint("required", required)), nil
	}
	return nil, nil
}

// finish runs the balance check and wraps act in a result.
func (v *Validator) finish(act action.Action, info inter.BlockInfo, tx state.Transaction, available, outgoing, minFee uint64) (Result, error) {
	cerr, err := v.requireBalance(act, info, tx, available, outgoing, minFee)
	if err != nil {
		return Result{}, err
	}
	if cerr != nil {
		return consensus.Invalid[action.Action](cerr), nil
	}
	return consensus.Valid[action.Action](act), nil
}

// keyHashesFree rejects keys whose hash is registered to any identity or
// repeated among keys.
func (v *Validator) keyHashesFree(keys []transition.KeyInCreation, tx state.Transaction) (*consensus.Error, error) {
	seen := make(map[[20]byte]bool, len(keys))
	for i := range keys {
		h := keys[i].Key.Hash()
		if seen[h] {
			return consensus.New(consensus.DuplicatePublicKeyHash, consensus.Bytes("hash", h[:])), nil
		}
		seen[h] = true
		owner, taken, err := v.drive.KeyHashOwner(tx, h)
		if err != nil {
			return nil, err
		}
		if taken {
			return consensus.New(consensus.DuplicatePublicKeyHash, consensus.Bytes("hash", h[:]), consensus.ID("owner", owner)), nil
		}
	}
	return nil, nil
}

func identityCreateStateV0(v *Validator, st transition.StateTransition, auth *authorization, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	t := st.(*transition.IdentityCreateV0)
	id := t.OwnerID()
	exists, err := v.drive.IdentityExists(tx, id)
	if err != nil {
		return Result{}, err
	}
	if exists {
		return invalid(consensus.IdentityAlreadyExists, consensus.ID("identity", id)), nil
	}
	cerr, err := v.keyHashesFree(t.PublicKeys, tx)
	if err != nil || cerr != nil {
		return consensus.Invalid[action.Action](consensusErrs(cerr)...), err
	}
	identity := dpp.Identity{ID: id}
	for _, k := range t.PublicKeys {
		identity.PublicKeys = append(identity.PublicKeys, k.Key.Copy())
	}
	identity.SortKeys()
	act := action.NewIdentityCreate(identity, t.AssetLock.OutPoint, auth.credits, v.feeInputs(st, auth))
	return v.finish(act, info, tx, auth.credits, 0, 0)
}

func identityTopUpStateV0(v *Validator, st transition.StateTransition, auth *authorization, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	t := st.(*transition.IdentityTopUpV0)
	balance, err := v.drive.Balance(tx, t.IdentityID)
	if err != nil {
		return Result{}, err
	}
	available, err := checked.Add(balance, auth.credits)
	if err != nil {
		return Result{}, err
	}
	act := action.NewIdentityTopUp(t.IdentityID, t.AssetLock.OutPoint, auth.credits, v.feeInputs(st, auth))
	return v.finish(act, info, tx, available, 0, 0)
}

func identityUpdateStateV0(v *Validator, st transition.StateTransition, auth *authorization, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	t := st.(*transition.IdentityUpdateV0)
	bump, err := v.identityNonce(st, tx)
	if err != nil || !bump.IsValid() {
		return consensus.Invalid[action.Action](bump.Errors...), err
	}
	identity := auth.identity
	if t.Revision != identity.Revision+1 {
		return invalid(consensus.InvalidIdentityRevision,
			consensus.Uint("revision", t.Revision),
			consensus.Uint("expected", identity.Revision+1)), nil
	}
	add := make([]dpp.IdentityPublicKey, 0, len(t.AddKeys))
	for _, k := range t.AddKeys {
		if _, ok := identity.Key(k.Key.ID); ok {
			return invalid(consensus.DuplicatePublicKeyID, consensus.Uint("id", uint64(k.Key.ID))), nil
		}
		add = append(add, k.Key.Copy())
	}
	cerr, err := v.keyHashesFree(t.AddKeys, tx)
	if err != nil || cerr != nil {
		return consensus.Invalid[action.Action](consensusErrs(cerr)...), err
	}
	disabled := make([]dpp.IdentityPublicKey, 0, len(t.DisableKeys))
	for _, id := range t.DisableKeys {
		k, ok := identity.Key(id)
		switch {
		case !ok:
			return invalid(consensus.PublicKeyNotFound, consensus.ID("identity", identity.ID), consensus.Uint("key", uint64(id))), nil
		case k.SecurityLevel == dpp.SecurityLevelMaster:
			return invalid(consensus.MasterKeyCannotBeDisabled, consensus.Uint("key", uint64(id))), nil
		case k.IsDisabled():
			return invalid(consensus.PublicKeyDisabled, consensus.Uint("key", uint64(id)), consensus.Uint("disabled_at", k.DisabledAt)), nil
		}
		d := k.Copy()
		d.DisabledAt = uint64(info.Time)
		disabled = append(disabled, d)
	}
	act := action.NewIdentityUpdate(identity.ID, t.Revision, add, disabled, bump.Data, v.feeInputs(st, auth))
	return v.finish(act, info, tx, identity.Balance, 0, v.pv.Fees.Schedule.IdentityUpdateMinFee)
}

func creditTransferStateV0(v *Validator, st transition.StateTransition, auth *authorization, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	t := st.(*transition.CreditTransferV0)
	bump, err := v.identityNonce(st, tx)
	if err != nil || !bump.IsValid() {
		return consensus.Invalid[action.Action](bump.Errors...), err
	}
	exists, err := v.drive.IdentityExists(tx, t.RecipientID)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return invalid(consensus.RecipientNotFound, consensus.ID("recipient", t.RecipientID)), nil
	}
	act := action.NewCreditTransfer(t.IdentityID, t.RecipientID, t.Amount, bump.Data, v.feeInputs(st, auth))
	return v.finish(act, info, tx, auth.identity.Balance, t.Amount, v.pv.Fees.Schedule.CreditTransferMinFee)
}

func creditWithdrawalStateV0(v *Validator, st transition.StateTransition, auth *authorization, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	t := st.(*transition.CreditWithdrawalV0)
	bump, err := v.identityNonce(st, tx)
	if err != nil || !bump.IsValid() {
		return consensus.Invalid[action.Action](bump.Errors...), err
	}
	script := append([]byte(nil), t.OutputScript...)
	act := action.NewCreditWithdrawal(t.IdentityID, t.Amount, t.CoreFeePerByte, script, bump.Data, v.feeInputs(st, auth))
	return v.finish(act, info, tx, auth.identity.Balance, t.Amount, v.pv.Fees.Schedule.CreditWithdrawalMinFee)
}
