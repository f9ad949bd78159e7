package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Store wraps a Database with module-prefixed, JSON-encoded accessors. It
// generalizes the prefix-keyed accessor pattern the teacher repo builds on
// top of its trie-backed Manager (core/state/manager.go, prefixes.go):
// each domain package gets its own namespace and never touches raw keys.
//
// Unlike the teacher's Manager, Store is not backed by a Merkle trie: this
// control plane has no block-root commitment to maintain, so the simpler
// direct-keyed Database suffices. Keys are still keccak256-hashed the way
// the teacher hashes list/index keys, to keep fixed-width keys regardless of
// the human-readable suffix length.
type Store struct {
	db Database
}

// New wraps a Database in a Store.
func New(db Database) *Store {
	return &Store{db: db}
}

// Put JSON-encodes value and stores it under prefix+key.
func (s *Store) Put(prefix, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: marshal: %w", err)
	}
	return s.db.Put(storeKey(prefix, key), data)
}

// Get JSON-decodes the value stored under prefix+key into out. It returns
// (false, nil) if no value is present.
func (s *Store) Get(prefix, key []byte, out any) (bool, error) {
	data, err := s.db.Get(storeKey(prefix, key))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("storage: unmarshal: %w", err)
	}
	return true, nil
}

// Delete removes the value stored under prefix+key, if present.
func (s *Store) Delete(prefix, key []byte) error {
	return s.db.Delete(storeKey(prefix, key))
}

// Raw exposes the underlying Database for components (e.g. the puppeteer's
// height-indexed snapshot map) that manage their own encoding directly.
func (s *Store) Raw() Database {
	return s.db
}

// PutIndex persists an ordered list of string ids under a fixed prefix,
// mirroring the teacher's tokenListKey pattern (core/state/manager.go) of
// keeping a small JSON index alongside per-entity records so callers can
// enumerate without a key-range scan.
func (s *Store) PutIndex(indexKey []byte, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("storage: marshal index: %w", err)
	}
	return s.db.Put(ethcrypto.Keccak256(indexKey), data)
}

// GetIndex loads the ordered list of string ids stored under indexKey.
func (s *Store) GetIndex(indexKey []byte) ([]string, error) {
	data, err := s.db.Get(ethcrypto.Keccak256(indexKey))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("storage: unmarshal index: %w", err)
	}
	return ids, nil
}

func storeKey(prefix, key []byte) []byte {
	buf := make([]byte, 0, len(prefix)+len(key))
	buf = append(buf, prefix...)
	buf = append(buf, key...)
	return ethcrypto.Keccak256(buf)
}
