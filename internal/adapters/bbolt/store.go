// Package bbolt implements the ports.Storage interface using bbolt (embedded
// B+ tree). The full repository state lives under one key as a JSON blob;
// the pre-multi-session schema occupied a sibling key that is read once
// during migration and then cleared. Writes are transactional, so a crash
// mid-write cannot corrupt previously committed data.
package bbolt

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/ground/internal/ports"
)

// Bucket and key names.
var (
	bucketState = []byte("state")
	keySessions = []byte("sessions") // multi-session State blob
	keyLegacy   = []byte("session")  // legacy single-session blob
)

// Store implements ports.Storage backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadState retrieves the persisted repository state.
// Returns nil, nil if no state has ever been saved.
func (s *Store) LoadState() (*ports.State, error) {
	data, err := s.get(keySessions)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var st ports.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, nil
}

// SaveState persists the full repository state, overwriting any prior blob.
func (s *Store) SaveState(st *ports.State) error {
	if st == nil {
		return fmt.Errorf("nil state")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketState)
		if err != nil {
			return err
		}
		return b.Put(keySessions, data)
	})
}

// LoadLegacySession returns the raw legacy single-session blob, or nil, nil
// if the legacy slot is empty. Decoding is the migration layer's job; the
// adapter does not trust the blob's shape.
func (s *Store) LoadLegacySession() ([]byte, error) {
	return s.get(keyLegacy)
}

// ClearLegacySession erases the legacy slot. Idempotent.
func (s *Store) ClearLegacySession() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		if b == nil {
			return nil
		}
		return b.Delete(keyLegacy)
	})
}

// get reads one key, copying the bytes out of the transaction (bbolt slices
// are only valid within the tx).
func (s *Store) get(key []byte) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SeedLegacySession writes a raw blob into the legacy slot. Only the
// migration tests use this; current code never writes the legacy key.
func (s *Store) SeedLegacySession(raw []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketState)
		if err != nil {
			return err
		}
		return b.Put(keyLegacy, raw)
	})
}
