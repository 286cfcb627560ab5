// Package kvstore defines the durable key-value storage used to persist the
// workspace, and provides badger, sqlite and in-memory backends.
package kvstore

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Get when a key has never been written or was deleted.
var ErrNotFound = errors.New("key not found")

// Backend identifiers accepted by Open.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Store is a flat string-keyed blob store. Writes are synchronous: once Set
// returns nil the value is durable for backends that support durability.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set overwrites the value stored under key.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys lists all keys with the given prefix in lexical order.
	Keys(prefix string) ([]string, error)

	// Backend returns the backend identifier.
	Backend() string

	// Close releases any resources held by the store.
	Close() error
}

// Maintainer is implemented by backends that need periodic housekeeping
// (value log GC, vacuuming).
type Maintainer interface {
	Maintain() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string // badger, sqlite, memory (default: badger)
	Path    string // directory (badger) or file (sqlite); ignored for memory
}

// Open creates a Store from a backend identifier.
func Open(cfg Config, logger zerolog.Logger) (Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendBadger
	}

	logger.Debug().
		Str("backend", backend).
		Str("path", cfg.Path).
		Msg("Opening key-value store")

	switch backend {
	case BackendBadger:
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger store requires a path")
		}
		return NewBadgerStore(cfg.Path)
	case BackendSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		path := cfg.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "mistalic.db")
		}
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}
