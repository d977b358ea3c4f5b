package store

import (
	"fmt"

	"lumen/config"
	"lumen/db"
	"lumen/logx"
)

// NewFromConfig builds a Store from the node's store configuration.
func NewFromConfig(cfg *config.StoreConfig) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	logx.Info("store", fmt.Sprintf("opened %s store at %q", cfg.Backend, cfg.Directory))
	return NewKVStore(provider), nil
}

func newProvider(cfg *config.StoreConfig) (db.DatabaseProvider, error) {
	switch cfg.Backend {
	case "leveldb":
		return db.NewLevelDBProvider(cfg.Directory)
	case "bolt":
		return db.NewBoltProvider(cfg.Directory)
	case "memory":
		return db.NewMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
