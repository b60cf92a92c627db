package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
)

var (
	keyLastHeight = []byte("last-height")
	keyLastRoot   = []byte("last-root")
)

// MetaDB keeps node bookkeeping outside the authenticated trie.
type MetaDB interface {
	Put(key, value []byte) error
	// Get returns nil when the key is absent.
	Get(key []byte) ([]byte, error)
	LastPersisted() (idx.Block, hash.Hash, bool, error)
	SetLastPersisted(height idx.Block, root hash.Hash) error
	Close()
}

type memMetaDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemMetaDB returns an in-memory MetaDB.
func NewMemMetaDB() MetaDB {
	return &memMetaDB{data: make(map[string][]byte)}
}

func (db *memMetaDB) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *memMetaDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.data[string(key)], nil
}

func (db *memMetaDB) LastPersisted() (idx.Block, hash.Hash, bool, error) {
	return lastPersisted(db)
}

func (db *memMetaDB) SetLastPersisted(height idx.Block, root hash.Hash) error {
	return setLastPersisted(db, height, root)
}

func (db *memMetaDB) Close() {}

type levelMetaDB struct {
	db *leveldb.DB
}

// NewLevelMetaDB opens a LevelDB MetaDB at path.
func NewLevelMetaDB(path string) (MetaDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open meta db: %w", err)
	}
	return &levelMetaDB{db: db}, nil
}

func (l *levelMetaDB) Put(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *levelMetaDB) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if errors.Is(err, leveldberrors.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (l *levelMetaDB) LastPersisted() (idx.Block, hash.Hash, bool, error) {
	return lastPersisted(l)
}

// SetLastPersisted writes height and root in one batch.
func (l *levelMetaDB) SetLastPersisted(height idx.Block, root hash.Hash) error {
	batch := new(leveldb.Batch)
	batch.Put(keyLastHeight, bigendian.Uint64ToBytes(uint64(height)))
	batch.Put(keyLastRoot, root.Bytes())
	return l.db.Write(batch, nil)
}

func (l *levelMetaDB) Close() {
	l.db.Close()
}

func lastPersisted(db MetaDB) (idx.Block, hash.Hash, bool, error) {
	h, err := db.Get(keyLastHeight)
	if err != nil || h == nil {
		return 0, hash.Hash{}, false, err
	}
	r, err := db.Get(keyLastRoot)
	if err != nil {
		return 0, hash.Hash{}, false, err
	}
	if len(h) != 8 || len(r) != 32 {
		return 0, hash.Hash{}, false, fmt.Errorf("corrupted meta: height %d bytes, root %d bytes", len(h), len(r))
	}
	return idx.Block(bigendian.BytesToUint64(h)), hash.BytesToHash(r), true, nil
}

func setLastPersisted(db MetaDB, height idx.Block, root hash.Hash) error {
	if err := db.Put(keyLastHeight, bigendian.Uint64ToBytes(uint64(height))); err != nil {
		return err
	}
	return db.Put(keyLastRoot, root.Bytes())
}
