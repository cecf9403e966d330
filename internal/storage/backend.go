// Package storage provides the durable key-value backends behind the consent store.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend kinds accepted by Open
const (
	KindMemory  = "memory"
	KindLevelDB = "leveldb"
	KindBadger  = "badger"
)

// Backend is a minimal durable key-value store.
// Get of a missing key returns (nil, nil).
type Backend interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Close() error
}

// Open creates the backend of the given kind rooted at path.
func Open(kind, path string) (Backend, error) {
	switch kind {
	case KindMemory:
		return NewMemBackend(), nil
	case KindLevelDB, KindBadger:
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}

	dir := filepath.Join(path, kind)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}
	if kind == KindLevelDB {
		return NewLevelDBBackend(dir)
	}
	return NewBadgerBackend(dir)
}
