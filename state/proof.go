package state

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	gethtrie "github.com/ethereum/go-ethereum/trie"
)

// Proof is a set of trie nodes proving a query result against Root.
// For a single-key query with no result it proves absence.
type Proof struct {
	Root  hash.Hash
	Query PathQuery `rlp:"-"`
	Items []KeyElement
	Nodes [][]byte
}

// Encode returns the wire form: root, items and nodes. The query is not
// included; the verifier supplies its own.
func (p *Proof) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(p)
}

func DecodeProof(b []byte) (*Proof, error) {
	var p Proof
	if err := rlp.DecodeBytes(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *TrieStore) Prove(q PathQuery) (*Proof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := query(s.persisted, q)
	if err != nil {
		return nil, err
	}
	keys := make([][]byte, 0, len(items)+1)
	for _, it := range items {
		keys = append(keys, q.Path.Key(it.Key))
	}
	if q.Key != nil && len(items) == 0 {
		keys = append(keys, q.Path.Key(q.Key))
	}

	nodes := memorydb.New()
	for _, k := range keys {
		if err := s.persisted.Prove(k, nodes); err != nil {
			return nil, fmt.Errorf("prove %x: %w", k, err)
		}
	}
	proof := &Proof{Root: hash.Hash(s.root), Query: q, Items: items}
	it := nodes.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		proof.Nodes = append(proof.Nodes, common.CopyBytes(it.Value()))
	}
	// memorydb iterates by node hash; sort by content for a canonical form
	sort.Slice(proof.Nodes, func(i, j int) bool { return bytes.Compare(proof.Nodes[i], proof.Nodes[j]) < 0 })
	return proof, nil
}

// VerifyProof checks that every item of proof is in the trie at root under
// q.Path and, for a single-key query without items, that the key is absent.
// It returns the proven items.
func VerifyProof(root hash.Hash, q PathQuery, proof *Proof) ([]KeyElement, error) {
	if proof.Root != root {
		return nil, fmt.Errorf("%w: root %x, want %x", ErrInvalidProof, proof.Root, root)
	}
	db := memorydb.New()
	for _, n := range proof.Nodes {
		if err := db.Put(crypto.Keccak256(n), n); err != nil {
			return nil, err
		}
	}
	if q.Key != nil && len(proof.Items) == 0 {
		if common.Hash(root) == gethtypes.EmptyRootHash {
			return nil, nil
		}
		v, err := gethtrie.VerifyProof(common.Hash(root), q.Path.Key(q.Key), db)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		if v != nil {
			return nil, fmt.Errorf("%w: absent key is present", ErrInvalidProof)
		}
		return nil, nil
	}
	if q.Limit > 0 && len(proof.Items) > q.Limit {
		return nil, fmt.Errorf("%w: %d items over limit %d", ErrInvalidProof, len(proof.Items), q.Limit)
	}
	for i, item := range proof.Items {
		if q.Key != nil && !bytes.Equal(item.Key, q.Key) {
			return nil, fmt.Errorf("%w: unexpected key %x", ErrInvalidProof, item.Key)
		}
		if i > 0 && bytes.Compare(proof.Items[i-1].Key, item.Key) >= 0 {
			return nil, fmt.Errorf("%w: items out of order", ErrInvalidProof)
		}
		v, err := gethtrie.VerifyProof(common.Hash(root), q.Path.Key(item.Key), db)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		if !bytes.Equal(v, encodeElement(item.Element)) {
			return nil, fmt.Errorf("%w: value mismatch for %x", ErrInvalidProof, item.Key)
		}
	}
	return proof.Items, nil
}
