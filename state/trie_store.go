package state

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/sirupsen/logrus"
)

// DBConfig sizes the on-disk backend.
type DBConfig struct {
	Cache   int
	Handles int
}

// DefaultDBConfig is used when no preset is selected.
var DefaultDBConfig = DBConfig{Cache: 256, Handles: 256}

type trieTx struct {
	id    uint64
	trie  *gethtrie.Trie
	store *TrieStore
	done  bool
}

func (t *trieTx) ID() uint64 { return t.id }

// TrieStore keeps items in a go-ethereum Merkle Patricia trie with raw
// (unhashed) keys, so iteration follows key order.
//
// Committed transactions are folded into head; Persist writes head to the
// node database.
type TrieStore struct {
	mu sync.Mutex

	kv     ethdb.KeyValueStore
	trieDB *triedb.Database
	meta   MetaDB

	head      *gethtrie.Trie
	persisted *gethtrie.Trie
	root      common.Hash
	height    idx.Block

	open   *trieTx
	nextID uint64

	Log logrus.FieldLogger
}

var _ Store = (*TrieStore)(nil)

// NewMemoryStore returns a store backed by memory only.
func NewMemoryStore() *TrieStore {
	s, err := newTrieStore(memorydb.New(), NewMemMetaDB())
	if err != nil {
		// empty in-memory databases always open
		panic(err)
	}
	return s
}

// OpenLevelStore opens (or creates) a store under dir.
func OpenLevelStore(dir string, cfg DBConfig) (*TrieStore, error) {
	kv, err := leveldb.New(dir+"/trie", cfg.Cache, cfg.Handles, "platform/trie/", false)
	if err != nil {
		return nil, fmt.Errorf("open trie db: %w", err)
	}
	meta, err := NewLevelMetaDB(dir + "/meta")
	if err != nil {
		kv.Close()
		return nil, err
	}
	return newTrieStore(kv, meta)
}

func newTrieStore(kv ethdb.KeyValueStore, meta MetaDB) (*TrieStore, error) {
	s := &TrieStore{
		kv:     kv,
		trieDB: triedb.NewDatabase(rawdb.NewDatabase(kv), triedb.HashDefaults),
		meta:   meta,
		root:   gethtypes.EmptyRootHash,
		Log:    logrus.StandardLogger().WithField("module", "state"),
	}
	height, root, ok, err := meta.LastPersisted()
	if err != nil {
		return nil, err
	}
	if ok {
		s.height = height
		s.root = common.Hash(root)
	}
	t, err := gethtrie.New(gethtrie.TrieID(s.root), s.trieDB)
	if err != nil {
		return nil, fmt.Errorf("open trie at %x: %w", s.root, err)
	}
	s.persisted = t
	s.head = t.Copy()
	return s, nil
}

// Meta exposes the metadata database.
func (s *TrieStore) Meta() MetaDB {
	return s.meta
}

func (s *TrieStore) StartTransaction() (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open != nil {
		return nil, ErrTransactionPending
	}
	s.nextID++
	s.open = &trieTx{id: s.nextID, trie: s.head.Copy(), store: s}
	return s.open, nil
}

func (s *TrieStore) own(tx Transaction) (*trieTx, error) {
	t, ok := tx.(*trieTx)
	if !ok || t.store != s {
		return nil, ErrForeignTransaction
	}
	if t.done {
		return nil, ErrTransactionClosed
	}
	return t, nil
}

func (s *TrieStore) CommitTransaction(tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.own(tx)
	if err != nil {
		return err
	}
	s.head = t.trie
	t.done = true
	s.open = nil
	return nil
}

func (s *TrieStore) RollbackTransaction(tx Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.own(tx)
	if err != nil {
		return
	}
	t.done = true
	t.trie = nil
	if s.open == t {
		s.open = nil
	}
}

// reader returns the trie tx reads from. The caller holds s.mu.
func (s *TrieStore) reader(tx Transaction) (*gethtrie.Trie, error) {
	if tx == nil {
		return s.head, nil
	}
	t, err := s.own(tx)
	if err != nil {
		return nil, err
	}
	return t.trie, nil
}

func getElement(t *gethtrie.Trie, key []byte) (*Element, error) {
	raw, err := t.Get(key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	e, err := decodeElement(raw)
	if err != nil {
		return nil, fmt.Errorf("decode element %x: %w", key, err)
	}
	return &e, nil
}

func (s *TrieStore) Get(tx Transaction, path Path, key []byte) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.reader(tx)
	if err != nil {
		return nil, err
	}
	return getElement(t, path.Key(key))
}

func (s *TrieStore) Apply(tx Transaction, ops []Op) (OperationCosts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total OperationCosts
	t, err := s.own(tx)
	if err != nil {
		return total, err
	}
	for _, op := range ops {
		full := op.Path.Key(op.Key)
		existing, err := getElement(t.trie, full)
		if err != nil {
			return total, err
		}
		c, err := measure(op, existing)
		if err != nil {
			return total, err
		}
		if op.Kind == OpDelete {
			err = t.trie.Delete(full)
		} else {
			err = t.trie.Update(full, encodeElement(Element{Value: op.Value, Flags: op.Flags}))
		}
		if err != nil {
			return total, fmt.Errorf("%s: %w", op, err)
		}
		if err := total.Add(c); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *TrieStore) Estimate(tx Transaction, ops []Op) (OperationCosts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total OperationCosts
	t, err := s.reader(tx)
	if err != nil {
		return total, err
	}
	// later ops in the batch see earlier ones
	overlay := make(map[string]*Element)
	for _, op := range ops {
		full := op.Path.Key(op.Key)
		existing, seen := overlay[string(full)]
		if !seen {
			if existing, err = getElement(t, full); err != nil {
				return total, err
			}
		}
		c, err := measure(op, existing)
		if err != nil {
			return total, err
		}
		if op.Kind == OpDelete {
			overlay[string(full)] = nil
		} else {
			overlay[string(full)] = &Element{Value: op.Value, Flags: op.Flags}
		}
		if err := total.Add(c); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *TrieStore) Query(tx Transaction, q PathQuery) ([]KeyElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.reader(tx)
	if err != nil {
		return nil, err
	}
	return query(t, q)
}

func query(t *gethtrie.Trie, q PathQuery) ([]KeyElement, error) {
	if q.Key != nil {
		e, err := getElement(t, q.Path.Key(q.Key))
		if err != nil || e == nil {
			return nil, err
		}
		return []KeyElement{{Key: q.Key, Element: *e}}, nil
	}

	prefix := q.Path.ItemPrefix()
	start := prefix
	if q.StartAfter != nil {
		// smallest key strictly greater than StartAfter
		start = append(q.Path.Key(q.StartAfter), 0x00)
	}
	nodeIt, err := t.NodeIterator(start)
	if err != nil {
		return nil, err
	}
	it := gethtrie.NewIterator(nodeIt)
	var out []KeyElement
	for it.Next() {
		if !bytes.HasPrefix(it.Key, prefix) {
			break
		}
		e, err := decodeElement(it.Value)
		if err != nil {
			return nil, fmt.Errorf("decode element %x: %w", it.Key, err)
		}
		out = append(out, KeyElement{
			Key:     common.CopyBytes(it.Key[len(prefix):]),
			Element: e,
		})
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	if it.Err != nil {
		return nil, it.Err
	}
	return out, nil
}

func (s *TrieStore) RootHash(tx Transaction) (hash.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.reader(tx)
	if err != nil {
		return hash.Hash{}, err
	}
	return hash.Hash(t.Hash()), nil
}

// Persist commits head to the node database and records height.
func (s *TrieStore) Persist(height idx.Block) (hash.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open != nil {
		return hash.Hash{}, ErrTransactionPending
	}
	newRoot, nodes := s.head.Commit(false)
	if nodes != nil {
		merged := trienode.NewMergedNodeSet()
		if err := merged.Merge(nodes); err != nil {
			return hash.Hash{}, err
		}
		if err := s.trieDB.Update(newRoot, s.root, uint64(height), merged, nil); err != nil {
			return hash.Hash{}, err
		}
		if err := s.trieDB.Commit(newRoot, false); err != nil {
			return hash.Hash{}, err
		}
	}
	t, err := gethtrie.New(gethtrie.TrieID(newRoot), s.trieDB)
	if err != nil {
		return hash.Hash{}, err
	}
	if err := s.meta.SetLastPersisted(height, hash.Hash(newRoot)); err != nil {
		return hash.Hash{}, err
	}
	s.persisted = t
	s.head = t.Copy()
	s.root = newRoot
	s.height = height
	s.Log.WithFields(logrus.Fields{"height": height, "root": newRoot.Hex()}).Debug("State persisted")
	return hash.Hash(newRoot), nil
}

func (s *TrieStore) LastPersisted() (idx.Block, hash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height, hash.Hash(s.root)
}

func (s *TrieStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta.Close()
	return s.kv.Close()
}
