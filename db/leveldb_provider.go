package db

import (
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBProvider implements DatabaseProvider for LevelDB.
type LevelDBProvider struct {
	once sync.Once
	db   *leveldb.DB
}

// NewLevelDBProvider opens (or creates) a LevelDB database at directory.
func NewLevelDBProvider(directory string) (DatabaseProvider, error) {
	ldb, err := leveldb.OpenFile(directory, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &LevelDBProvider{db: ldb}, nil
}

func (p *LevelDBProvider) Get(key []byte) ([]byte, error) {
	value, err := p.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func (p *LevelDBProvider) Put(key, value []byte) error {
	return p.db.Put(key, value, nil)
}

func (p *LevelDBProvider) Delete(key []byte) error {
	return p.db.Delete(key, nil)
}

func (p *LevelDBProvider) Has(key []byte) (bool, error) {
	return p.db.Has(key, nil)
}

func (p *LevelDBProvider) Batch() DatabaseBatch {
	return &levelDBBatch{batch: new(leveldb.Batch), db: p.db}
}

// Close closes the database. Safe to call more than once when the provider
// backs several stores.
func (p *LevelDBProvider) Close() error {
	var err error
	p.once.Do(func() {
		err = p.db.Close()
	})
	return err
}

type levelDBBatch struct {
	batch *leveldb.Batch
	db    *leveldb.DB
}

func (b *levelDBBatch) Put(key, value []byte) { b.batch.Put(key, value) }
func (b *levelDBBatch) Delete(key []byte)     { b.batch.Delete(key) }
func (b *levelDBBatch) Write() error          { return b.db.Write(b.batch, nil) }
func (b *levelDBBatch) Reset()                { b.batch.Reset() }
