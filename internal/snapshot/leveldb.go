package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBBackend keeps the document under one key of a local LevelDB.
type LevelDBBackend struct {
	db  *leveldb.DB
	key []byte
}

func OpenLevelDBBackend(path, name string) (*LevelDBBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBBackend{db: db, key: []byte("snapshot:" + name)}, nil
}

func (b *LevelDBBackend) Name() string { return "leveldb" }

func (b *LevelDBBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := b.db.Get(b.key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	return data, nil
}

func (b *LevelDBBackend) Save(ctx context.Context, data []byte) error {
	if err := b.db.Put(b.key, data, nil); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (b *LevelDBBackend) Close() error { return b.db.Close() }
