package validation

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/nonce"
	"github.com/dashpay/platform-sub039/transition"
)

// maxOutputScript bounds withdrawal output scripts (P2PKH and P2SH fit).
const maxOutputScript = 34

// CheckStructure runs the stateless stage. It is safe for concurrent use.
func (v *Validator) CheckStructure(st transition.StateTransition) []*consensus.Error {
	s := v.strategies[st.Kind()]
	if !s.accepted.Contains(st.FeatureVersion()) {
		return []*consensus.Error{consensus.New(consensus.UnsupportedFeatureVersion,
			consensus.Text("kind", st.Kind().String()),
			consensus.Uint("version", uint64(st.FeatureVersion())),
			consensus.Uint("min", uint64(s.accepted.Min)),
			consensus.Uint("max", uint64(s.accepted.Max)))}
	}
	raw, err := transition.Encode(st)
	if err != nil {
		return []*consensus.Error{consensus.New(consensus.InvalidEncoding, consensus.Text("reason", err.Error()))}
	}
	if len(raw) > v.pv.Limits.MaxTransitionBytes {
		return []*consensus.Error{consensus.New(consensus.MaxTransitionSizeExceeded,
			consensus.Uint("size", uint64(len(raw))),
			consensus.Uint("max", uint64(v.pv.Limits.MaxTransitionBytes)))}
	}
	return s.structure(v, st)
}

// PreValidate runs CheckStructure over a block in parallel. Results keep
// the order of sts.
func (v *Validator) PreValidate(ctx context.Context, sts []transition.StateTransition) ([][]*consensus.Error, error) {
	out := make([][]*consensus.Error, len(sts))
	g, ctx := errgroup.WithContext(ctx)
	limit := v.cfg.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)
	for i, st := range sts {
		i, st := i, st
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = v.CheckStructure(st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type errs []*consensus.Error

func (e *errs) add(code consensus.Code, params ...consensus.Param) {
	*e = append(*e, consensus.New(code, params...))
}

func (e *errs) nonce(claimed uint64, v *Validator) {
	if err := nonce.CheckBounds(claimed, v.pv); err != nil {
		*e = append(*e, err)
	}
}

func (e *errs) identifier(name string, id inter.Identifier) {
	if id.IsZero() {
		e.add(consensus.InvalidIdentifier, consensus.Text("field", name))
	}
}

func (e *errs) assetLock(p *dpp.AssetLockProof) {
	if err := p.Validate(); err != nil {
		e.add(consensus.InvalidAssetLockProof, consensus.Text("reason", err.Error()))
	}
}

// keys checks keys offered for addition to an identity.
func (e *errs) keys(keys []transition.KeyInCreation, max int) {
	if len(keys) > max {
		e.add(consensus.TooManyPublicKeys, consensus.Uint("count", uint64(len(keys))), consensus.Uint("max", uint64(max)))
		return
	}
	seen := make(map[uint32]bool, len(keys))
	for i := range keys {
		k := &keys[i].Key
		if seen[k.ID] {
			e.add(consensus.DuplicatePublicKeyID, consensus.Uint("id", uint64(k.ID)))
		}
		seen[k.ID] = true
		if err := k.ValidateData(); err != nil {
			e.add(consensus.InvalidPublicKeyData, consensus.Uint("id", uint64(k.ID)), consensus.Text("reason", err.Error()))
		}
		if k.IsDisabled() {
			e.add(consensus.InvalidPublicKeyData, consensus.Uint("id", uint64(k.ID)), consensus.Text("reason", "disabled"))
		}
	}
}

func identityCreateStructureV0(v *Validator, st transition.StateTransition) []*consensus.Error {
	t := st.(*transition.IdentityCreateV0)
	var e errs
	e.assetLock(&t.AssetLock)
	if len(t.PublicKeys) == 0 {
		e.add(consensus.MissingMasterPublicKey)
		return e
	}
	e.keys(t.PublicKeys, v.pv.Limits.MaxPublicKeysInCreation)
	identity := dpp.Identity{}
	for _, k := range t.PublicKeys {
		identity.PublicKeys = append(identity.PublicKeys, k.Key)
	}
	if !identity.HasActiveMaster() {
		e.add(consensus.MissingMasterPublicKey)
	}
	return e
}

func identityTopUpStructureV0(v *Validator, st transition.StateTransition) []*consensus.Error {
	t := st.(*transition.IdentityTopUpV0)
	var e errs
	e.identifier("identity", t.IdentityID)
	e.assetLock(&t.AssetLock)
	return e
}

func identityUpdateStructureV0(v *Validator, st transition.StateTransition) []*consensus.Error {
	t := st.(*transition.IdentityUpdateV0)
	var e errs
	e.identifier("identity", t.IdentityID)
	e.nonce(t.Nonce, v)
	e.keys(t.AddKeys, v.pv.Limits.MaxPublicKeysPerUpdate)
	if len(t.DisableKeys) > v.pv.Limits.MaxPublicKeysPerUpdate {
		e.add(consensus.TooManyPublicKeys, consensus.Uint("count", uint64(len(t.DisableKeys))), consensus.Uint("max", uint64(v.pv.Limits.MaxPublicKeysPerUpdate)))
	}
	seen := make(map[uint32]bool)
	for _, k := range t.AddKeys {
		seen[k.Key.ID] = true
	}
	for _, id := range t.DisableKeys {
		if seen[id] {
			e.add(consensus.DuplicatePublicKeyID, consensus.Uint("id", uint64(id)))
		}
		seen[id] = true
	}
	return e
}

func creditTransferStructureV0(v *Validator, st transition.StateTransition) []*consensus.Error {
	t := st.(*transition.CreditTransferV0)
	var e errs
	e.identifier("identity", t.IdentityID)
	e.identifier("recipient", t.RecipientID)
	if t.Amount == 0 || t.Amount < v.pv.Limits.MinTransferAmount {
		e.add(consensus.InvalidAmount, consensus.Uint("amount", t.Amount), consensus.Uint("min", v.pv.Limits.MinTransferAmount))
	}
	if t.IdentityID == t.RecipientID {
		e.add(consensus.SelfTransfer, consensus.ID("identity", t.IdentityID))
	}
	e.nonce(t.Nonce, v)
	return e
}

func creditWithdrawalStructureV0(v *Validator, st transition.StateTransition) []*consensus.Error {
	t := st.(*transition.CreditWithdrawalV0)
	var e errs
	e.identifier("identity", t.IdentityID)
	if t.Amount == 0 {
		e.add(consensus.InvalidAmount, consensus.Uint("amount", 0))
	} else if t.Amount < v.pv.Limits.MinWithdrawalAmount {
		e.add(consensus.WithdrawalBelowMinimum, consensus.Uint("amount", t.Amount), consensus.Uint("min", v.pv.Limits.MinWithdrawalAmount))
	}
	if len(t.OutputScript) == 0 || len(t.OutputScript) > maxOutputScript {
		e.add(consensus.InvalidEncoding, consensus.Text("field", "output_script"))
	}
	e.nonce(t.Nonce, v)
	return e
}

func contractCreateStructureV0(v *Validator, st transition.StateTransition) []*consensus.Error {
	t := st.(*transition.ContractCreateV0)
	var e errs
	e.identifier("owner", t.Contract.OwnerID)
	e.nonce(t.Nonce, v)
	if t.Contract.Version != 1 {
		e.add(consensus.InvalidDataContractVersion, consensus.Uint("version", uint64(t.Contract.Version)), consensus.Uint("expected", 1))
	}
	if want := dpp.ContractID(t.Contract.OwnerID, t.Nonce); t.Contract.ID != want {
		e.add(consensus.InvalidContractStructure, consensus.Text("reason", "id"), consensus.ID("expected", want))
	}
	e.contract(&t.Contract, v)
	return e
}

func contractUpdateStructureV0(v *Validator, st transition.StateTransition) []*consensus.Error {
	t := st.(*transition.ContractUpdateV0)
	var e errs
	e.identifier("contract", t.Contract.ID)
	e.identifier("owner", t.Contract.OwnerID)
	e.nonce(t.Nonce, v)
	if t.Contract.Version < 2 {
		e.add(consensus.InvalidDataContractVersion, consensus.Uint("version", uint64(t.Contract.Version)))
	}
	e.contract(&t.Contract, v)
	return e
}

// contract checks the shape of a contract definition.
func (e *errs) contract(c *dpp.DataContract, v *Validator) {
	l := v.pv.Limits
	bad := func(reason string, params ...consensus.Param) {
		e.add(consensus.InvalidContractStructure, append([]consensus.Param{consensus.Text("reason", reason)}, params...)...)
	}
	if len(c.DocumentTypes) == 0 && len(c.Tokens) == 0 {
		bad("empty")
	}
	if len(c.DocumentTypes) > l.MaxDocumentTypes {
		bad("too many document types", consensus.Uint("count", uint64(len(c.DocumentTypes))))
	}
	types := make(map[string]bool)
	for i := range c.DocumentTypes {
		dt := &c.DocumentTypes[i]
		if dt.Name == "" || types[dt.Name] {
			bad("document type name", consensus.Text("type", dt.Name))
		}
		types[dt.Name] = true
		if len(dt.Properties) == 0 || len(dt.Properties) > l.MaxDocumentProperties {
			bad("property count", consensus.Text("type", dt.Name))
		}
		props := make(map[string]bool)
		for _, p := range dt.Properties {
			if p.Name == "" || props[p.Name] || p.Type > dpp.PropertyIdentifier {
				bad("property", consensus.Text("type", dt.Name), consensus.Text("property", p.Name))
			}
			props[p.Name] = true
		}
		if len(dt.Indices) > l.MaxIndices {
			bad("too many indices", consensus.Text("type", dt.Name))
		}
		indices := make(map[string]bool)
		for _, idx := range dt.Indices {
			if idx.Name == "" || indices[idx.Name] || len(idx.Properties) == 0 {
				bad("index", consensus.Text("type", dt.Name), consensus.Text("index", idx.Name))
			}
			indices[idx.Name] = true
			for _, p := range idx.Properties {
				if !props[p] {
					bad("index property", consensus.Text("index", idx.Name), consensus.Text("property", p))
				}
			}
		}
		if dt.Tradeable && !dt.Transferable {
			bad("tradeable but not transferable", consensus.Text("type", dt.Name))
		}
	}
	if len(c.Tokens) > l.MaxTokensPerContract {
		e.add(consensus.InvalidTokenStructure, consensus.Text("reason", "too many tokens"))
	}
	for i, t := range c.Tokens {
		if int(t.Position) != i {
			e.add(consensus.InvalidTokenStructure, consensus.Text("reason", "position"), consensus.Uint("position", uint64(t.Position)))
		}
		if t.BaseSupply > t.SupplyCap() {
			e.add(consensus.InvalidTokenStructure, consensus.Text("reason", "base supply above max"), consensus.Uint("position", uint64(t.Position)))
		}
	}
}

func documentsBatchStructureV0(v *Validator, st transition.StateTransition) []*consensus.Error {
	t := st.(*transition.DocumentsBatchV0)
	var e errs
	e.identifier("owner", t.Owner)
	if !e.batchSize(len(t.Transitions), v) {
		return e
	}
	seen := make(map[inter.Identifier]bool)
	for i := range t.Transitions {
		d := &t.Transitions[i]
		e.identifier("contract", d.ContractID)
		e.nonce(d.Nonce, v)
		if d.DocumentType == "" {
			e.add(consensus.InvalidDocumentStructure, consensus.Text("reason", "document type"))
		}
		if d.Action > transition.DocumentUpdatePrice {
			e.add(consensus.InvalidDocumentStructure, consensus.Text("reason", "action"), consensus.Uint("action", uint64(d.Action)))
			continue
		}
		if d.Action == transition.DocumentCreate {
			want := dpp.DocumentID(d.ContractID, t.Owner, d.DocumentType, d.Entropy[:])
			if d.DocumentID != want {
				e.add(consensus.InvalidDocumentStructure, consensus.Text("reason", "id"), consensus.ID("expected", want))
			}
		}
		if seen[d.DocumentID] {
			e.add(consensus.InvalidDocumentStructure, consensus.Text("reason", "document repeated in batch"), consensus.ID("document", d.DocumentID))
		}
		seen[d.DocumentID] = true
		if d.Action == transition.DocumentTransfer {
			e.identifier("recipient", d.Recipient)
			if d.Recipient == t.Owner {
				e.add(consensus.SelfTransfer, consensus.ID("identity", t.Owner))
			}
		}
		names := make(map[string]bool)
		for j, f := range d.Fields {
			if names[f.Name] || (j > 0 && d.Fields[j-1].Name > f.Name) {
				e.add(consensus.InvalidDocumentStructure, consensus.Text("reason", "field order"), consensus.Text("field", f.Name))
			}
			names[f.Name] = true
			if len(f.Value) > v.pv.Limits.MaxFieldBytes {
				e.add(consensus.InvalidDocumentStructure, consensus.Text("reason", "field size"), consensus.Text("field", f.Name))
			}
		}
	}
	return e
}

func tokensBatchStructureV0(v *Validator, st transition.StateTransition) []*consensus.Error {
	t := st.(*transition.TokensBatchV0)
	var e errs
	e.identifier("owner", t.Owner)
	if !e.batchSize(len(t.Transitions), v) {
		return e
	}
	for _, tt := range t.Transitions {
		e.identifier("contract", tt.ContractID)
		e.nonce(tt.Nonce, v)
		switch tt.Action {
		case transition.TokenMint, transition.TokenBurn:
			if tt.Amount == 0 {
				e.add(consensus.InvalidAmount, consensus.Uint("amount", 0))
			}
		case transition.TokenTransfer:
			if tt.Amount == 0 {
				e.add(consensus.InvalidAmount, consensus.Uint("amount", 0))
			}
			e.identifier("recipient", tt.Recipient)
			if tt.Recipient == t.Owner {
				e.add(consensus.SelfTransfer, consensus.ID("identity", t.Owner))
			}
		case transition.TokenFreeze, transition.TokenUnfreeze:
			e.identifier("recipient", tt.Recipient)
		default:
			e.add(consensus.InvalidTokenStructure, consensus.Text("reason", "action"), consensus.Uint("action", uint64(tt.Action)))
		}
	}
	return e
}

func (e *errs) batchSize(n int, v *Validator) bool {
	if n == 0 {
		e.add(consensus.EmptyBatch)
		return false
	}
	if n > v.pv.Limits.MaxBatchTransitions {
		e.add(consensus.TooManyBatchTransitions, consensus.Uint("count", uint64(n)), consensus.Uint("max", uint64(v.pv.Limits.MaxBatchTransitions)))
		return false
	}
	return true
}
