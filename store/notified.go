package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	bolt "go.etcd.io/bbolt"
)

// notifiedRecord marks one correlation key as already notified
type notifiedRecord struct {
	Key string `boltholdKey:"Key"`
	At  time.Time
}

// NotifiedStore persists which correlation keys already produced a user
// notification, so a redelivered push after a process restart does not
// notify twice.
type NotifiedStore struct {
	db *bolthold.Store
}

// NewNotifiedStore opens (or creates) the store at dbPath
func NewNotifiedStore(dbPath string) (*NotifiedStore, error) {
	db, err := bolthold.Open(dbPath, 0666, &bolthold.Options{
		Options: &bolt.Options{Timeout: 3 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db. Check that the path is valid and writable: %v", err)
	}
	return &NotifiedStore{db: db}, nil
}

// MarkNotified records key as notified, idempotent
func (s *NotifiedStore) MarkNotified(key string) error {
	err := s.db.Insert(key, &notifiedRecord{Key: key, At: time.Now()})
	if errors.Is(err, bolthold.ErrKeyExists) {
		return nil
	}
	return err
}

// WasNotified reports whether key was already notified
func (s *NotifiedStore) WasNotified(key string) (bool, error) {
	var rec notifiedRecord
	err := s.db.Get(key, &rec)
	if errors.Is(err, bolthold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the underlying store
func (s *NotifiedStore) Close() error {
	return s.db.Close()
}
