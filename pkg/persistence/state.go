package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// LinkKey identifies a sending identity: a sender under one key version.
// Rotating the key version restarts the nonce space.
type LinkKey struct {
	SenderID   uint16
	KeyVersion uint8
}

// String returns "sender/keyversion".
func (k LinkKey) String() string {
	return fmt.Sprintf("%d/%d", k.SenderID, k.KeyVersion)
}

// NonceStore persists the next unused nonce per link.
type NonceStore interface {
	// LoadNonce returns the persisted next nonce. ok is false if nothing
	// was saved for the link.
	LoadNonce(link LinkKey) (next uint32, ok bool, err error)

	// SaveNonce records next as the lowest nonce that may still be used.
	SaveNonce(link LinkKey, next uint32) error
}

// LinkState is the on-disk state of one host.
type LinkState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Links holds one entry per sending identity.
	Links []LinkEntry `json:"links,omitempty"`
}

// LinkEntry is the persisted nonce bound of one link.
type LinkEntry struct {
	SenderID   uint16    `json:"sender_id"`
	KeyVersion uint8     `json:"key_version"`
	NextNonce  uint32    `json:"next_nonce"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LinkStateStore persists LinkState to a JSON file.
type LinkStateStore struct {
	mu   sync.Mutex
	path string
}

// NewLinkStateStore creates a store backed by path.
func NewLinkStateStore(path string) *LinkStateStore {
	return &LinkStateStore{path: path}
}

// Save writes the state atomically (temp file and rename).
func (s *LinkStateStore) Save(state *LinkState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(state)
}

func (s *LinkStateStore) save(state *LinkState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()
	sort.Slice(state.Links, func(i, j int) bool {
		a, b := state.Links[i], state.Links[j]
		if a.SenderID != b.SenderID {
			return a.SenderID < b.SenderID
		}
		return a.KeyVersion < b.KeyVersion
	})

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the state from disk.
// Returns nil, nil if the file doesn't exist.
func (s *LinkStateStore) Load() (*LinkState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *LinkStateStore) load() (*LinkState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &LinkState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("state file version %d is newer than supported %d", state.Version, StateVersion)
	}
	return state, nil
}

// Clear removes the state file.
func (s *LinkStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// LoadNonce implements NonceStore.
func (s *LinkStateStore) LoadNonce(link LinkKey) (uint32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil || state == nil {
		return 0, false, err
	}
	for _, e := range state.Links {
		if e.SenderID == link.SenderID && e.KeyVersion == link.KeyVersion {
			return e.NextNonce, true, nil
		}
	}
	return 0, false, nil
}

// SaveNonce implements NonceStore.
func (s *LinkStateStore) SaveNonce(link LinkKey, next uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	if state == nil {
		state = &LinkState{}
	}

	entry := LinkEntry{
		SenderID:   link.SenderID,
		KeyVersion: link.KeyVersion,
		NextNonce:  next,
		UpdatedAt:  time.Now(),
	}
	found := false
	for i, e := range state.Links {
		if e.SenderID == link.SenderID && e.KeyVersion == link.KeyVersion {
			state.Links[i] = entry
			found = true
			break
		}
	}
	if !found {
		state.Links = append(state.Links, entry)
	}
	return s.save(state)
}

// Compile-time interface satisfaction checks.
var (
	_ NonceStore = (*LinkStateStore)(nil)
	_ NonceStore = (*BadgerNonceStore)(nil)
	_ NonceStore = (*MemoryNonceStore)(nil)
)
