package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

const badgerPrefixNonce = "NONCE"

// BadgerNonceStore keeps nonce bounds in a badger database.
type BadgerNonceStore struct {
	db *badger.DB
}

// OpenBadgerNonceStore opens (or creates) a store in dir.
// An empty dir opens an in-memory database.
func OpenBadgerNonceStore(dir string) (*BadgerNonceStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithSyncWrites(true)
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open nonce store: %w", err)
	}
	return &BadgerNonceStore{db: db}, nil
}

// Close closes the database.
func (s *BadgerNonceStore) Close() error {
	return s.db.Close()
}

// LoadNonce implements NonceStore.
func (s *BadgerNonceStore) LoadNonce(link LinkKey) (uint32, bool, error) {
	var next uint32
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nonceKey(link))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if len(val) != 4 {
			return fmt.Errorf("nonce record for %s has %d bytes", link, len(val))
		}
		next = binary.LittleEndian.Uint32(val)
		found = true
		return nil
	})
	return next, found, err
}

// SaveNonce implements NonceStore.
func (s *BadgerNonceStore) SaveNonce(link LinkKey, next uint32) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var val [4]byte
		binary.LittleEndian.PutUint32(val[:], next)
		return txn.Set(nonceKey(link), val[:])
	})
}

func nonceKey(link LinkKey) []byte {
	key := make([]byte, 0, len(badgerPrefixNonce)+3)
	key = append(key, badgerPrefixNonce...)
	key = binary.BigEndian.AppendUint16(key, link.SenderID)
	return append(key, link.KeyVersion)
}

// MemoryNonceStore keeps nonce bounds in memory. Used by tests and by
// links that accept nonce reuse after restart.
type MemoryNonceStore struct {
	mu    sync.Mutex
	next  map[LinkKey]uint32
	saves int
}

// NewMemoryNonceStore creates an empty store.
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{next: make(map[LinkKey]uint32)}
}

// LoadNonce implements NonceStore.
func (s *MemoryNonceStore) LoadNonce(link LinkKey) (uint32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.next[link]
	return n, ok, nil
}

// SaveNonce implements NonceStore.
func (s *MemoryNonceStore) SaveNonce(link LinkKey, next uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[link] = next
	s.saves++
	return nil
}

// Saves returns how many times SaveNonce was called.
func (s *MemoryNonceStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
