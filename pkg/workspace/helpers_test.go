package workspace

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

// flakyStore wraps a MemoryStore and fails writes on demand.
type flakyStore struct {
	*kvstore.MemoryStore

	mu       sync.Mutex
	failSets bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: kvstore.NewMemoryStore()}
}

func (s *flakyStore) setFailing(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSets = fail
}

func (s *flakyStore) Set(key string, value []byte) error {
	s.mu.Lock()
	fail := s.failSets
	s.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return s.MemoryStore.Set(key, value)
}

func newTestManager(t *testing.T, store kvstore.Store) *Manager {
	t.Helper()

	if store == nil {
		store = kvstore.NewMemoryStore()
	}
	m, err := Open(Config{Store: store, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return m
}

func storedFiles(t *testing.T, store kvstore.Store) []FileRecord {
	t.Helper()

	data, err := store.Get(KeyFiles)
	require.NoError(t, err)
	var files []FileRecord
	require.NoError(t, json.Unmarshal(data, &files))
	return files
}
