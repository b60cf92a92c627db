package validation

import (
	"github.com/dashpay/platform-sub039/action"
	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
)

func contractCreateStateV0(v *Validator, st transition.StateTransition, auth *authorization, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	t := st.(*transition.ContractCreateV0)
	bump, err := v.identityNonce(st, tx)
	if err != nil || !bump.IsValid() {
		return consensus.Invalid[action.Action](bump.Errors...), err
	}
	existing, err := v.contracts.Fetch(tx, t.Contract.ID)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return invalid(consensus.DataContractAlreadyExists, consensus.ID("contract", t.Contract.ID)), nil
	}
	c := t.Contract
	act := action.NewContractCreate(&c, bump.Data, v.feeInputs(st, auth))
	return v.finish(act, info, tx, auth.identity.Balance, 0, v.pv.Fees.Schedule.ContractCreateMinFee)
}

func contractUpdateStateV0(v *Validator, st transition.StateTransition, auth *authorization, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	t := st.(*transition.ContractUpdateV0)
	bump, err := v.nonces.ValidateIdentityContractNonce(tx, t.Contract.OwnerID, t.Contract.ID, t.Nonce)
	if err != nil || !bump.IsValid() {
		return consensus.Invalid[action.Action](bump.Errors...), err
	}
	old, err := v.contracts.Fetch(tx, t.Contract.ID)
	if err != nil {
		return Result{}, err
	}
	if old == nil {
		return invalid(consensus.DataContractNotFound, consensus.ID("contract", t.Contract.ID)), nil
	}
	if old.OwnerID != t.Contract.OwnerID {
		return invalid(consensus.DataContractOwnerMismatch,
			consensus.ID("contract", old.ID), consensus.ID("owner", old.OwnerID)), nil
	}
	if t.Contract.Version != old.Version+1 {
		return invalid(consensus.InvalidDataContractVersion,
			consensus.Uint("version", uint64(t.Contract.Version)),
			consensus.Uint("expected", uint64(old.Version)+1)), nil
	}
	if reason := incompatibility(old, &t.Contract); reason != "" {
		return invalid(consensus.IncompatibleDataContractUpdate,
			consensus.ID("contract", old.ID), consensus.Text("reason", reason)), nil
	}
	c := t.Contract
	act := action.NewContractUpdate(&c, bump.Data, v.feeInputs(st, auth))
	return v.finish(act, info, tx, auth.identity.Balance, 0, v.pv.Fees.Schedule.ContractUpdateMinFee)
}

// incompatibility explains why next cannot replace old, or returns "".
// Document types may be added and existing ones may gain optional
// properties; everything else, tokens included, is fixed at creation.
func incompatibility(old, next *dpp.DataContract) string {
	if old.KeepsHistory != next.KeepsHistory {
		return "keepsHistory changed"
	}
	for i := range old.DocumentTypes {
		o := &old.DocumentTypes[i]
		n, ok := next.DocumentType(o.Name)
		if !ok {
			return "document type " + o.Name + " removed"
		}
		if o.Mutable != n.Mutable || o.CanBeDeleted != n.CanBeDeleted || o.Transferable != n.Transferable ||
			o.Tradeable != n.Tradeable || o.KeepsHistory != n.KeepsHistory {
			return "document type " + o.Name + " flags changed"
		}
		for _, p := range o.Properties {
			np, ok := n.Property(p.Name)
			if !ok || *np != p {
				return "property " + o.Name + "." + p.Name + " changed"
			}
		}
		for _, p := range n.Properties {
			if _, ok := o.Property(p.Name); !ok && p.Required {
				return "required property " + o.Name + "." + p.Name + " added"
			}
		}
		if !sameIndices(o.Indices, n.Indices) {
			return "document type " + o.Name + " indices changed"
		}
	}
	if len(old.Tokens) != len(next.Tokens) {
		return "tokens added"
	}
	for _, ot := range old.Tokens {
		nt, ok := next.Token(ot.Position)
		if !ok || *nt != ot {
			return "token changed"
		}
	}
	return ""
}

func sameIndices(a, b []dpp.Index) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Unique != b[i].Unique || len(a[i].Properties) != len(b[i].Properties) {
			return false
		}
		for j := range a[i].Properties {
			if a[i].Properties[j] != b[i].Properties[j] {
				return false
			}
		}
	}
	return true
}
