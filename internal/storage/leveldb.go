package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

type LevelDBBackend struct {
	db *leveldb.DB
}

func NewLevelDBBackend(path string) (*LevelDBBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("can't open leveldb at %s: %w", path, err)
	}
	return &LevelDBBackend{db: db}, nil
}

func (b *LevelDBBackend) Get(key []byte) ([]byte, error) {
	v, err := b.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (b *LevelDBBackend) Set(key, value []byte) error {
	return b.db.Put(key, value, &opt.WriteOptions{Sync: true})
}

func (b *LevelDBBackend) Delete(key []byte) error {
	return b.db.Delete(key, &opt.WriteOptions{Sync: true})
}

func (b *LevelDBBackend) Close() error {
	return b.db.Close()
}
