package chain

import "lumen/types"

// Checkpoint pairs a block with the state it produced, plus both canonical
// roots, so chain bookkeeping never recomputes or re-fetches the four
// together.
type Checkpoint struct {
	Block     types.BeaconBlock
	BlockRoot types.Root
	State     *types.BeaconState
	StateRoot types.Root
}

// Update replaces all four fields at once. Callers hold the chain lock;
// partial checkpoint updates are never observable.
func (c *Checkpoint) Update(block types.BeaconBlock, blockRoot types.Root, state *types.BeaconState, stateRoot types.Root) {
	c.Block = block
	c.BlockRoot = blockRoot
	c.State = state
	c.StateRoot = stateRoot
}
