package chain

import (
	"errors"
	"fmt"

	"lumen/types"
)

// GetBlockRoots returns count canonical block roots starting at earliestSlot,
// spaced skip+1 slots apart. The walk runs most recent first so that when it
// reaches past the working state's root ring, older persisted states can be
// loaded to continue it; the result is reversed into ascending order.
func (c *BeaconChain) GetBlockRoots(earliestSlot types.Slot, count, skip uint64) ([]types.Root, error) {
	if count == 0 {
		return nil, nil
	}

	c.stateMu.RLock()
	state := c.state
	c.stateMu.RUnlock()

	step := types.Slot(skip + 1)
	lastSlot := earliestSlot + types.Slot(count-1)*step
	if lastSlot >= state.Slot {
		return nil, fmt.Errorf("chain: block roots range ends at slot %d, state is at %d",
			uint64(lastSlot), uint64(state.Slot))
	}

	roots := make([]types.Root, count)
	i := int(count) - 1
	slot := lastSlot
	for i >= 0 {
		root, err := state.BlockRoot(slot)
		switch {
		case err == nil:
			roots[i] = root
			i--
			if i >= 0 {
				slot -= step
			}
		case errors.Is(err, types.ErrSlotOutOfBounds) && slot < state.Slot:
			older, hopErr := c.olderState(state)
			if hopErr != nil {
				return nil, hopErr
			}
			state = older
		default:
			return nil, err
		}
	}
	return roots, nil
}

// olderState loads the state at the earliest slot the given state's ring
// still covers, extending a root walk further into the past.
func (c *BeaconChain) olderState(state *types.BeaconState) (*types.BeaconState, error) {
	ringLen := types.Slot(uint64(len(state.LatestStateRoots)))
	if state.Slot < ringLen {
		return nil, ErrMissingHistoricalState
	}
	boundarySlot := state.Slot - ringLen
	stateRoot, err := state.StateRoot(boundarySlot)
	if err != nil {
		return nil, err
	}
	older, err := c.store.GetState(stateRoot)
	if err != nil {
		return nil, err
	}
	if older == nil || older.Slot >= state.Slot {
		return nil, ErrMissingHistoricalState
	}
	return older, nil
}

// GetBlock returns the block stored at root, or nil if unknown.
func (c *BeaconChain) GetBlock(root types.Root) (*types.BeaconBlock, error) {
	return c.store.GetBlock(root)
}

// GetState returns the state stored at root, or nil if unknown.
func (c *BeaconChain) GetState(root types.Root) (*types.BeaconState, error) {
	return c.store.GetState(root)
}

// GetBlockBodies returns the bodies of the given blocks, in request order.
// Every root must be known.
func (c *BeaconChain) GetBlockBodies(roots []types.Root) ([]types.BeaconBlockBody, error) {
	bodies := make([]types.BeaconBlockBody, 0, len(roots))
	for _, root := range roots {
		block, err := c.store.GetBlock(root)
		if err != nil {
			return nil, err
		}
		if block == nil {
			return nil, fmt.Errorf("%w: block %s", ErrUnknownRoot, root.Short())
		}
		bodies = append(bodies, block.Body)
	}
	return bodies, nil
}

// GetBlockHeaders returns the headers of the given blocks, in request order.
// Headers are derived from stored blocks, so the signature field is carried
// through.
func (c *BeaconChain) GetBlockHeaders(roots []types.Root) ([]types.BeaconBlockHeader, error) {
	headers := make([]types.BeaconBlockHeader, 0, len(roots))
	for _, root := range roots {
		block, err := c.store.GetBlock(root)
		if err != nil {
			return nil, err
		}
		if block == nil {
			return nil, fmt.Errorf("%w: block %s", ErrUnknownRoot, root.Short())
		}
		headers = append(headers, block.Header())
	}
	return headers, nil
}

// IsNewBlockRoot reports whether no block is stored under root. Peers use it
// to decide whether a gossiped block is worth fetching.
func (c *BeaconChain) IsNewBlockRoot(root types.Root) (bool, error) {
	known, err := c.store.HasBlock(root)
	if err != nil {
		return false, err
	}
	return !known, nil
}

// ChainDump returns every checkpoint on the canonical chain, genesis first.
// Intended for debugging and test inspection; it loads a block and state per
// slot walked.
func (c *BeaconChain) ChainDump() ([]Checkpoint, error) {
	c.canonicalMu.RLock()
	root := c.canonicalHead.BlockRoot
	c.canonicalMu.RUnlock()

	var dump []Checkpoint
	for {
		block, err := c.store.GetBlock(root)
		if err != nil {
			return nil, err
		}
		if block == nil {
			return nil, fmt.Errorf("%w: chain dump block %s", ErrUnknownRoot, root.Short())
		}
		state, err := c.store.GetState(block.StateRoot)
		if err != nil {
			return nil, err
		}
		if state == nil {
			return nil, fmt.Errorf("%w: chain dump state %s", ErrUnknownRoot, block.StateRoot.Short())
		}

		dump = append(dump, Checkpoint{
			Block:     *block,
			BlockRoot: root,
			State:     state,
			StateRoot: block.StateRoot,
		})

		if block.PreviousBlockRoot == c.spec.ZeroHash {
			break
		}
		root = block.PreviousBlockRoot
	}

	// Walked head to genesis; callers want ascending slots.
	for i, j := 0, len(dump)-1; i < j; i, j = i+1, j-1 {
		dump[i], dump[j] = dump[j], dump[i]
	}
	return dump, nil
}
