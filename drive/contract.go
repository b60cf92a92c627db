package drive

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

// FetchContract returns nil when the contract does not exist.
func (d *Drive) FetchContract(tx state.Transaction, id inter.Identifier) (*dpp.DataContract, error) {
	e, err := d.Get(tx, ContractsPath, id.Bytes())
	if err != nil || e == nil {
		return nil, err
	}
	c, err := dpp.DecodeContract(e.Value)
	if err != nil {
		return nil, platform.Corrupted("contract %s: %v", id, err)
	}
	return c, nil
}

// ContractOps stores c. When the contract keeps history the version is also
// written to its history subtree. flags are attached to both elements.
func ContractOps(c *dpp.DataContract, flags []byte, replace bool) ([]state.Op, error) {
	b, err := dpp.EncodeContract(c)
	if err != nil {
		return nil, err
	}
	op := state.InsertWithFlags(ContractsPath, c.ID.Bytes(), b, flags)
	if replace {
		op = state.ReplaceWithFlags(ContractsPath, c.ID.Bytes(), b, flags)
	}
	ops := []state.Op{op}
	if c.KeepsHistory {
		ops = append(ops, state.InsertWithFlags(ContractVersionsPath(c.ID), bigendian.Uint32ToBytes(c.Version), b, flags))
	}
	return ops, nil
}

// StoredDocument is a document with the flags it was stored with.
type StoredDocument struct {
	Document *dpp.Document
	Flags    *dpp.StorageFlags
}

// FetchDocument returns nil when the document does not exist.
func (d *Drive) FetchDocument(tx state.Transaction, contract inter.Identifier, typeName string, id inter.Identifier) (*StoredDocument, error) {
	e, err := d.Get(tx, DocumentTypePath(contract, typeName), id.Bytes())
	if err != nil || e == nil {
		return nil, err
	}
	doc, err := dpp.DecodeDocument(e.Value)
	if err != nil {
		return nil, platform.Corrupted("document %s: %v", id, err)
	}
	flags, err := dpp.DecodeStorageFlags(e.Flags)
	if err != nil {
		return nil, platform.Corrupted("document %s flags: %v", id, err)
	}
	return &StoredDocument{Document: doc, Flags: flags}, nil
}

// UniqueIndexDocument returns the document holding key in a unique index.
func (d *Drive) UniqueIndexDocument(tx state.Transaction, contract inter.Identifier, typeName, index string, key []byte) (inter.Identifier, bool, error) {
	e, err := d.Get(tx, IndexPath(contract, typeName, index), key)
	if err != nil || e == nil {
		return inter.ZeroIdentifier, false, err
	}
	id, err := inter.IdentifierFromBytes(e.Value)
	if err != nil {
		return inter.ZeroIdentifier, false, platform.Corrupted("index %s entry: %v", index, err)
	}
	return id, true, nil
}

// DocumentsByIndex lists document ids under an index key prefix in index order.
func (d *Drive) DocumentsByIndex(tx state.Transaction, contract inter.Identifier, typeName, index string, limit int) ([]inter.Identifier, error) {
	items, err := d.Query(tx, state.PathQuery{Path: IndexPath(contract, typeName, index), Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]inter.Identifier, 0, len(items))
	for _, it := range items {
		id, err := inter.IdentifierFromBytes(it.Element.Value)
		if err != nil {
			return nil, platform.Corrupted("index %s entry: %v", index, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func indexEntryKey(doc *dpp.Document, index *dpp.Index) ([]byte, bool) {
	key, complete := dpp.IndexKey(doc, index)
	if index.Unique && complete {
		return key, true
	}
	// non-unique entries, and unique entries with missing values, are
	// disambiguated by the document id
	return append(key, doc.ID[:]...), false
}

func indexOps(contract inter.Identifier, dt *dpp.DocumentType, doc *dpp.Document, flags []byte, remove bool) []state.Op {
	ops := make([]state.Op, 0, len(dt.Indices))
	for i := range dt.Indices {
		index := &dt.Indices[i]
		key, _ := indexEntryKey(doc, index)
		path := IndexPath(contract, dt.Name, index.Name)
		if remove {
			ops = append(ops, state.Delete(path, key))
		} else {
			ops = append(ops, state.InsertWithFlags(path, key, doc.ID.Bytes(), flags))
		}
	}
	return ops
}

// InsertDocumentOps stores a new document and its index entries.
func InsertDocumentOps(contract inter.Identifier, dt *dpp.DocumentType, doc *dpp.Document, flags []byte) ([]state.Op, error) {
	b, err := dpp.EncodeDocument(doc)
	if err != nil {
		return nil, err
	}
	ops := []state.Op{state.InsertWithFlags(DocumentTypePath(contract, dt.Name), doc.ID.Bytes(), b, flags)}
	return append(ops, indexOps(contract, dt, doc, flags, false)...), nil
}

// ReplaceDocumentOps rewrites a document, moving index entries whose key
// changed. Unchanged entries are left in place.
func ReplaceDocumentOps(contract inter.Identifier, dt *dpp.DocumentType, old, doc *dpp.Document, flags []byte) ([]state.Op, error) {
	b, err := dpp.EncodeDocument(doc)
	if err != nil {
		return nil, err
	}
	ops := []state.Op{state.ReplaceWithFlags(DocumentTypePath(contract, dt.Name), doc.ID.Bytes(), b, flags)}
	for i := range dt.Indices {
		index := &dt.Indices[i]
		oldKey, _ := indexEntryKey(old, index)
		newKey, _ := indexEntryKey(doc, index)
		if string(oldKey) == string(newKey) {
			continue
		}
		path := IndexPath(contract, dt.Name, index.Name)
		ops = append(ops,
			state.Delete(path, oldKey),
			state.InsertWithFlags(path, newKey, doc.ID.Bytes(), flags),
		)
	}
	return ops, nil
}

// DeleteDocumentOps removes a document and its index entries.
func DeleteDocumentOps(contract inter.Identifier, dt *dpp.DocumentType, doc *dpp.Document) []state.Op {
	ops := []state.Op{state.Delete(DocumentTypePath(contract, dt.Name), doc.ID.Bytes())}
	return append(ops, indexOps(contract, dt, doc, nil, true)...)
}
