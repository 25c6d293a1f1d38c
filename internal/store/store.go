// Package store is the host's key-value settings store, backed by bbolt.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketItems    = []byte("items")
	bucketSettings = []byte("settings")

	keyUISettings = []byte("ui")
)

// itemPrefix marks a stored item so that empty values survive bbolt, which
// does not distinguish a zero-length value from a missing one on read.
const itemPrefix = 'v'


// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("store: closed")

// Store wraps a BoltDB instance holding plugin items and the UI settings record.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketItems); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketSettings); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying DB handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// GetItem returns the value stored under key and whether it was present.
// An item explicitly set to "" is present.
func (s *Store) GetItem(key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, ErrClosed
	}
	var (
		val   string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketItems).Get([]byte(key))
		if v == nil {
			return nil
		}
		if len(v) == 0 || v[0] != itemPrefix {
			return nil
		}
		val, found = string(v[1:]), true
		return nil
	})
	return val, found, err
}

// SetItem stores value under key.
func (s *Store) SetItem(key, value string) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketItems).Put([]byte(key), append([]byte{itemPrefix}, value...))
	})
}

// DeleteItem removes key.
func (s *Store) DeleteItem(key string) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketItems).Delete([]byte(key))
	})
}

// UISettings returns the settings record last saved from the UI.
// A missing record yields an empty map.
func (s *Store) UISettings() (map[string]any, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	out := map[string]any{}
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSettings).Get(keyUISettings)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &out)
	})
	return out, err
}

// SaveUISettings replaces the UI settings record.
func (s *Store) SaveUISettings(settings map[string]any) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Put(keyUISettings, data)
	})
}
