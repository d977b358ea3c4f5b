// Package store persists blocks, states and headers keyed by their canonical
// roots, on top of a pluggable db.DatabaseProvider.
package store

import (
	"fmt"

	"lumen/db"
	"lumen/jsonx"
	"lumen/types"
)

// Store is the content-addressed persistence interface consumed by the chain.
// Getters return (nil, nil) for absent roots; only backend failures are
// errors.
type Store interface {
	PutBlock(root types.Root, block *types.BeaconBlock) error
	GetBlock(root types.Root) (*types.BeaconBlock, error)
	HasBlock(root types.Root) (bool, error)

	PutState(root types.Root, state *types.BeaconState) error
	GetState(root types.Root) (*types.BeaconState, error)

	// PutBlockAndState writes a block and its resulting state in one atomic
	// batch, so neither can be observed without the other.
	PutBlockAndState(blockRoot types.Root, block *types.BeaconBlock, stateRoot types.Root, state *types.BeaconState) error

	PutHeader(root types.Root, header *types.BeaconBlockHeader) error
	GetHeader(root types.Root) (*types.BeaconBlockHeader, error)
	HasHeader(root types.Root) (bool, error)

	// Head root metadata survives restarts so a fresh chain instance can
	// reconstruct the canonical head from the same backing store.
	SetHeadRoot(root types.Root) error
	GetHeadRoot() (types.Root, bool, error)
	SetFinalizedRoot(root types.Root) error
	GetFinalizedRoot() (types.Root, bool, error)

	Close() error
}

// KVStore implements Store over a DatabaseProvider with JSON-encoded values.
type KVStore struct {
	provider db.DatabaseProvider
}

// NewKVStore wraps a database provider.
func NewKVStore(provider db.DatabaseProvider) *KVStore {
	return &KVStore{provider: provider}
}

func prefixedKey(prefix string, root types.Root) []byte {
	key := make([]byte, len(prefix)+len(root))
	copy(key, prefix)
	copy(key[len(prefix):], root[:])
	return key
}

func (s *KVStore) put(prefix string, root types.Root, v interface{}) error {
	raw, err := jsonx.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s%s: %w", prefix, root.Short(), err)
	}
	return s.provider.Put(prefixedKey(prefix, root), raw)
}

func (s *KVStore) get(prefix string, root types.Root, v interface{}) (bool, error) {
	raw, err := s.provider.Get(prefixedKey(prefix, root))
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := jsonx.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s%s: %w", prefix, root.Short(), err)
	}
	return true, nil
}

func (s *KVStore) PutBlock(root types.Root, block *types.BeaconBlock) error {
	return s.put(PrefixBlock, root, block)
}

func (s *KVStore) GetBlock(root types.Root) (*types.BeaconBlock, error) {
	var block types.BeaconBlock
	ok, err := s.get(PrefixBlock, root, &block)
	if err != nil || !ok {
		return nil, err
	}
	return &block, nil
}

func (s *KVStore) HasBlock(root types.Root) (bool, error) {
	return s.provider.Has(prefixedKey(PrefixBlock, root))
}

func (s *KVStore) PutState(root types.Root, state *types.BeaconState) error {
	return s.put(PrefixState, root, state)
}

func (s *KVStore) GetState(root types.Root) (*types.BeaconState, error) {
	var state types.BeaconState
	ok, err := s.get(PrefixState, root, &state)
	if err != nil || !ok {
		return nil, err
	}
	return &state, nil
}

func (s *KVStore) PutBlockAndState(blockRoot types.Root, block *types.BeaconBlock, stateRoot types.Root, state *types.BeaconState) error {
	rawBlock, err := jsonx.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode block %s: %w", blockRoot.Short(), err)
	}
	rawState, err := jsonx.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state %s: %w", stateRoot.Short(), err)
	}
	batch := s.provider.Batch()
	batch.Put(prefixedKey(PrefixBlock, blockRoot), rawBlock)
	batch.Put(prefixedKey(PrefixState, stateRoot), rawState)
	return batch.Write()
}

func (s *KVStore) PutHeader(root types.Root, header *types.BeaconBlockHeader) error {
	return s.put(PrefixHeader, root, header)
}

func (s *KVStore) GetHeader(root types.Root) (*types.BeaconBlockHeader, error) {
	var header types.BeaconBlockHeader
	ok, err := s.get(PrefixHeader, root, &header)
	if err != nil || !ok {
		return nil, err
	}
	return &header, nil
}

func (s *KVStore) HasHeader(root types.Root) (bool, error) {
	return s.provider.Has(prefixedKey(PrefixHeader, root))
}

func (s *KVStore) setMetaRoot(key string, root types.Root) error {
	return s.provider.Put([]byte(key), root[:])
}

func (s *KVStore) getMetaRoot(key string) (types.Root, bool, error) {
	raw, err := s.provider.Get([]byte(key))
	if err != nil {
		return types.Root{}, false, err
	}
	if raw == nil {
		return types.Root{}, false, nil
	}
	if len(raw) != len(types.Root{}) {
		return types.Root{}, false, fmt.Errorf("invalid %s length: %d", key, len(raw))
	}
	var root types.Root
	copy(root[:], raw)
	return root, true, nil
}

func (s *KVStore) SetHeadRoot(root types.Root) error {
	return s.setMetaRoot(MetaKeyHeadRoot, root)
}

func (s *KVStore) GetHeadRoot() (types.Root, bool, error) {
	return s.getMetaRoot(MetaKeyHeadRoot)
}

func (s *KVStore) SetFinalizedRoot(root types.Root) error {
	return s.setMetaRoot(MetaKeyFinalizedRoot, root)
}

func (s *KVStore) GetFinalizedRoot() (types.Root, bool, error) {
	return s.getMetaRoot(MetaKeyFinalizedRoot)
}

func (s *KVStore) Close() error {
	return s.provider.Close()
}
