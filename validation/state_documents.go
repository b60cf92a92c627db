package validation

import (
	"github.com/dashpay/platform-sub039/action"
	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/nonce"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
	"github.com/dashpay/platform-sub039/utils/checked"
)

// documentBatch resolves the sub-transitions of one documents batch.
// Unique index entries claimed or released by earlier writes of the batch
// are visible to later ones.
type documentBatch struct {
	v     *Validator
	owner inter.Identifier
	info  inter.BlockInfo
	tx    state.Transaction
	act   *action.DocumentsBatch

	reserved map[string]inter.Identifier
	released map[string]bool
	paid     uint64
}

func documentsBatchStateV0(v *Validator, st transition.StateTransition, auth *authorization, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	t := st.(*transition.DocumentsBatchV0)
	b := &documentBatch{
		v:        v,
		owner:    t.Owner,
		info:     info,
		tx:       tx,
		act:      action.NewDocumentsBatch(t.Owner, v.feeInputs(st, auth)),
		reserved: make(map[string]inter.Identifier),
		released: make(map[string]bool),
	}
	chain := newNonceChain(v, t.Owner, tx)
	var bumps []nonce.Bump
	for i := range t.Transitions {
		d := &t.Transitions[i]
		res, err := chain.claim(d.ContractID, d.Nonce)
		if err != nil || !res.IsValid() {
			return consensus.Invalid[action.Action](res.Errors...), err
		}
		bumps = append(bumps, res.Data)

		cerr, err := b.apply(d)
		if err != nil || cerr != nil {
			return consensus.Invalid[action.Action](consensusErrs(cerr)...), err
		}
	}
	b.act.Bumps = chain.final(bumps)
	return v.finish(b.act, info, tx, auth.identity.Balance, b.paid, v.pv.Fees.Schedule.DocumentMinFee)
}

func (b *documentBatch) apply(d *transition.DocumentTransition) (*consensus.Error, error) {
	contract, err := b.v.contracts.Fetch(b.tx, d.ContractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return consensus.New(consensus.DataContractNotFound, consensus.ID("contract", d.ContractID)), nil
	}
	dt, ok := contract.DocumentType(d.DocumentType)
	if !ok {
		return consensus.New(consensus.DocumentTypeNotFound,
			consensus.ID("contract", d.ContractID), consensus.Text("type", d.DocumentType)), nil
	}
	stored, err := b.v.drive.FetchDocument(b.tx, contract.ID, dt.Name, d.DocumentID)
	if err != nil {
		return nil, err
	}

	if d.Action == transition.DocumentCreate {
		if stored != nil {
			return consensus.New(consensus.DocumentAlreadyExists, consensus.ID("document", d.DocumentID)), nil
		}
		doc := &dpp.Document{
			ID:        d.DocumentID,
			OwnerID:   b.owner,
			Revision:  1,
			Fields:    copyFields(d.Fields),
			CreatedAt: b.info.Time,
			UpdatedAt: b.info.Time,
		}
		if cerr := checkFields(dt, doc); cerr != nil {
			return cerr, nil
		}
		if cerr, err := b.claimIndices(contract.ID, dt, doc); err != nil || cerr != nil {
			return cerr, err
		}
		b.write(action.WriteInsert, contract, dt, doc, nil)
		b.record(contract, dt, dpp.HistoryDocumentCreate, doc.ID, inter.Identifier{}, 0)
		return nil, nil
	}

	if stored == nil {
		return consensus.New(consensus.DocumentNotFound, consensus.ID("document", d.DocumentID)), nil
	}
	prev := stored.Document
	if d.Action == transition.DocumentPurchase {
		return b.purchase(d, contract, dt, prev)
	}
	if prev.OwnerID != b.owner {
		return consensus.New(consensus.DocumentOwnerMismatch,
			consensus.ID("document", prev.ID), consensus.ID("owner", prev.OwnerID)), nil
	}

	if d.Action == transition.DocumentDelete {
		if !dt.CanBeDeleted {
			return consensus.New(consensus.DocumentNotDeletable, consensus.Text("type", dt.Name)), nil
		}
		b.releaseIndices(contract.ID, dt, prev)
		b.write(action.WriteDelete, contract, dt, prev, nil)
		b.record(contract, dt, dpp.HistoryDocumentDelete, prev.ID, inter.Identifier{}, 0)
		return nil, nil
	}

	if cerr := checkRevision(d, prev); cerr != nil {
		return cerr, nil
	}
	next := prev.Copy()
	next.Revision = d.Revision
	next.UpdatedAt = b.info.Time

	switch d.Action {
	case transition.DocumentReplace:
		if !dt.Mutable {
			return consensus.New(consensus.DocumentNotMutable, consensus.Text("type", dt.Name)), nil
		}
		next.Fields = copyFields(d.Fields)
		if cerr := checkFields(dt, &next); cerr != nil {
			return cerr, nil
		}
		b.releaseIndices(contract.ID, dt, prev)
		if cerr, err := b.claimIndices(contract.ID, dt, &next); err != nil || cerr != nil {
			return cerr, err
		}
		b.write(action.WriteReplace, contract, dt, &next, prev)
		b.record(contract, dt, dpp.HistoryDocumentReplace, next.ID, inter.Identifier{}, 0)

	case transition.DocumentTransfer:
		if !dt.Transferable {
			return consensus.New(consensus.DocumentNotTransferable, consensus.Text("type", dt.Name)), nil
		}
		exists, err := b.v.drive.IdentityExists(b.tx, d.Recipient)
		if err != nil {
			return nil, err
		}
		if !exists {
			return consensus.New(consensus.RecipientNotFound, consensus.ID("recipient", d.Recipient)), nil
		}
		next.OwnerID = d.Recipient
		next.Price = 0
		b.write(action.WriteReplace, contract, dt, &next, prev)
		b.record(contract, dt, dpp.HistoryDocumentTransfer, next.ID, d.Recipient, 0)

	case transition.DocumentUpdatePrice:
		if !dt.Tradeable {
			return consensus.New(consensus.DocumentNotForSale, consensus.ID("document", prev.ID)), nil
		}
		next.Price = d.Price
		b.write(action.WriteReplace, contract, dt, &next, prev)
		b.record(contract, dt, dpp.HistoryDocumentPrice, next.ID, inter.Identifier{}, d.Price)
	}
	return nil, nil
}

func (b *documentBatch) purchase(d *transition.DocumentTransition, contract *dpp.DataContract, dt *dpp.DocumentType, prev *dpp.Document) (*consensus.Error, error) {
	if !dt.Tradeable || prev.Price == 0 {
		return consensus.New(consensus.DocumentNotForSale, consensus.ID("document", prev.ID)), nil
	}
	if prev.OwnerID == b.owner {
		return consensus.New(consensus.DocumentOwnerMismatch,
			consensus.ID("document", prev.ID), consensus.ID("owner", prev.OwnerID)), nil
	}
	if d.Price != prev.Price {
		return consensus.New(consensus.DocumentPriceMismatch,
			consensus.Uint("price", prev.Price), consensus.Uint("offered", d.Price)), nil
	}
	if cerr := checkRevision(d, prev); cerr != nil {
		return cerr, nil
	}
	paid, err := checked.Add(b.paid, prev.Price)
	if err != nil {
		return nil, err
	}
	b.paid = paid

	next := prev.Copy()
	next.Revision = d.Revision
	next.UpdatedAt = b.info.Time
	next.OwnerID = b.owner
	next.Price = 0
	b.write(action.WriteReplace, contract, dt, &next, prev)
	b.act.Payments = append(b.act.Payments, action.Payment{To: prev.OwnerID, Amount: prev.Price})
	b.record(contract, dt, dpp.HistoryDocumentPurchase, next.ID, prev.OwnerID, prev.Price)
	return nil, nil
}

func (b *documentBatch) write(kind action.WriteKind, contract *dpp.DataContract, dt *dpp.DocumentType, doc, prev *dpp.Document) {
	b.act.Writes = append(b.act.Writes, action.DocumentWrite{
		Kind:     kind,
		Contract: contract.ID,
		Type:     dt,
		Document: doc,
		Previous: prev,
	})
}

func (b *documentBatch) record(contract *dpp.DataContract, dt *dpp.DocumentType, kind dpp.HistoryKind, doc, subject inter.Identifier, amount uint64) {
	if !dt.KeepsHistory && !contract.KeepsHistory {
		return
	}
	b.act.History = append(b.act.History, dpp.HistoryRecord{
		Kind:     kind,
		Contract: contract.ID,
		Entity:   doc,
		Actor:    b.owner,
		Subject:  subject,
		Amount:   amount,
	})
}

func indexEntry(contract inter.Identifier, dt *dpp.DocumentType, idx *dpp.Index, key []byte) string {
	return string(drive.IndexPath(contract, dt.Name, idx.Name).Key(key))
}

// claimIndices reserves the unique index entries of doc.
func (b *documentBatch) claimIndices(contract inter.Identifier, dt *dpp.DocumentType, doc *dpp.Document) (*consensus.Error, error) {
	for i := range dt.Indices {
		idx := &dt.Indices[i]
		if !idx.Unique {
			continue
		}
		key, complete := dpp.IndexKey(doc, idx)
		if !complete {
			continue
		}
		entry := indexEntry(contract, dt, idx, key)
		dup := consensus.New(consensus.DuplicateUniqueIndex,
			consensus.Text("type", dt.Name), consensus.Text("index", idx.Name), consensus.ID("document", doc.ID))
		if holder, ok := b.reserved[entry]; ok {
			if holder != doc.ID {
				return dup, nil
			}
			continue
		}
		holder, found, err := b.v.drive.UniqueIndexDocument(b.tx, contract, dt.Name, idx.Name, key)
		if err != nil {
			return nil, err
		}
		if found && holder != doc.ID && !b.released[entry] {
			return dup, nil
		}
		b.reserved[entry] = doc.ID
	}
	return nil, nil
}

// releaseIndices frees the unique index entries held by doc.
func (b *documentBatch) releaseIndices(contract inter.Identifier, dt *dpp.DocumentType, doc *dpp.Document) {
	for i := range dt.Indices {
		idx := &dt.Indices[i]
		if !idx.Unique {
			continue
		}
		key, complete := dpp.IndexKey(doc, idx)
		if !complete {
			continue
		}
		entry := indexEntry(contract, dt, idx, key)
		if b.reserved[entry] == doc.ID {
			delete(b.reserved, entry)
		}
		b.released[entry] = true
	}
}

func checkRevision(d *transition.DocumentTransition, prev *dpp.Document) *consensus.Error {
	if d.Revision != prev.Revision+1 {
		return consensus.New(consensus.InvalidDocumentRevision,
			consensus.Uint("revision", d.Revision), consensus.Uint("expected", prev.Revision+1))
	}
	return nil
}

// checkFields validates doc against the properties of dt.
func checkFields(dt *dpp.DocumentType, doc *dpp.Document) *consensus.Error {
	bad := func(reason, field string) *consensus.Error {
		return consensus.New(consensus.InvalidDocumentStructure,
			consensus.Text("reason", reason), consensus.Text("type", dt.Name), consensus.Text("field", field))
	}
	for _, f := range doc.Fields {
		p, ok := dt.Property(f.Name)
		if !ok {
			return bad("unknown property", f.Name)
		}
		switch p.Type {
		case dpp.PropertyInteger:
			if len(f.Value) != 8 {
				return bad("integer size", f.Name)
			}
		case dpp.PropertyIdentifier:
			if len(f.Value) != inter.IdentifierLength {
				return bad("identifier size", f.Name)
			}
		}
		if p.MaxLength > 0 && len(f.Value) > int(p.MaxLength) {
			return bad("max length", f.Name)
		}
	}
	for _, p := range dt.Properties {
		if _, ok := doc.Get(p.Name); p.Required && !ok {
			return bad("required", p.Name)
		}
	}
	return nil
}

func copyFields(fields []dpp.Field) []dpp.Field {
	out := make([]dpp.Field, len(fields))
	for i, f := range fields {
		out[i] = dpp.Field{Name: f.Name, Value: append([]byte(nil), f.Value...)}
	}
	return out
}
