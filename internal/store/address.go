// Package store persists the robot server address across restarts.
// It keeps a single key in a bbolt database.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"NpkBot/internal/model"
)

var (
	bucketSettings = []byte("settings")
	keyServerIP    = []byte("server_ip")
)

// AddressStore is the process-wide accessor for the configured robot address.
// Reads are served from memory; writes go through bbolt first.
type AddressStore struct {
	db *bbolt.DB

	mu   sync.RWMutex
	addr string
	ok   bool
}

// Open opens (or creates) the settings database at path and loads the saved address.
func Open(path string) (*AddressStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("[store] failed to create %s: %w", dir, err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("[store] failed to open BoltDB: %w", err)
	}

	s := &AddressStore{db: db}
	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSettings)
		if err != nil {
			return err
		}
		if v := b.Get(keyServerIP); v != nil {
			s.addr = string(v)
			s.ok = true
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[store] failed to load settings: %w", err)
	}
	return s, nil
}

// Get returns the saved address, or ok=false if none has been configured.
func (s *AddressStore) Get() (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr, s.ok, nil
}

// Set validates and persists addr. An invalid address leaves the stored value unchanged.
func (s *AddressStore) Set(addr string) error {
	if err := model.ValidateAddress(addr); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSettings).Put(keyServerIP, []byte(addr))
	})
	if err != nil {
		return fmt.Errorf("[store] failed to save server_ip: %w", err)
	}
	s.addr = addr
	s.ok = true
	log.Printf("[store] server_ip set to %s", addr)
	return nil
}

// Clear removes the saved address so callers route back to configuration.
func (s *AddressStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSettings).Delete(keyServerIP)
	})
	if err != nil {
		return fmt.Errorf("[store] failed to clear server_ip: %w", err)
	}
	s.addr = ""
	s.ok = false
	log.Println("[store] server_ip cleared")
	return nil
}

// Close closes the underlying database.
func (s *AddressStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
