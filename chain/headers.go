package chain

import (
	"lumen/logx"
	"lumen/types"
)

// Light-client path: headers can be tracked without their blocks, letting a
// node follow the chain tip before (or without) fetching full bodies.

// InsertHeader stores a bare header and returns true when the chain's best
// known slot advanced because of it.
func (c *BeaconChain) InsertHeader(header *types.BeaconBlockHeader) (bool, error) {
	root := header.CanonicalRoot()
	if err := c.store.PutHeader(root, header); err != nil {
		return false, err
	}

	c.headerMu.Lock()
	defer c.headerMu.Unlock()
	if header.Slot > c.bestHeaderSlot {
		c.bestHeaderSlot = header.Slot
		logx.Debug("chain", "best header slot ", uint64(header.Slot), " root ", root.Short())
		return true, nil
	}
	return false, nil
}

// InsertBlockBody stores a full block whose header was tracked earlier.
// Unlike InsertHeader it never moves the best known slot; the header that
// announced the block already did.
func (c *BeaconChain) InsertBlockBody(block *types.BeaconBlock) (types.Root, error) {
	root := block.CanonicalRoot()
	if err := c.store.PutBlock(root, block); err != nil {
		return types.Root{}, err
	}
	return root, nil
}

// IsKnownHeader reports whether root is known as a header or as a full
// block; a stored block always implies its header.
func (c *BeaconChain) IsKnownHeader(root types.Root) (bool, error) {
	known, err := c.store.HasHeader(root)
	if err != nil || known {
		return known, err
	}
	return c.store.HasBlock(root)
}

// IsKnownBlock reports whether a full block is stored under root.
func (c *BeaconChain) IsKnownBlock(root types.Root) (bool, error) {
	return c.store.HasBlock(root)
}

// BestHeaderSlot returns the highest slot among accepted blocks and inserted
// headers.
func (c *BeaconChain) BestHeaderSlot() types.Slot {
	c.headerMu.RLock()
	defer c.headerMu.RUnlock()
	return c.bestHeaderSlot
}
