// Package transition implements the pure per-slot, per-block and per-epoch
// state transition functions. States are mutated in place; callers own the
// copy they pass in.
package transition

import (
	"lumen/config"
	"lumen/types"
	"lumen/utils"
)

// PerSlotProcessing advances the state by exactly one slot, running the
// epoch transition when the new slot starts an epoch.
func PerSlotProcessing(state *types.BeaconState, spec *config.ChainSpec) error {
	if err := cacheState(state, spec); err != nil {
		return err
	}

	if utils.EpochBoundary(state.Slot, spec.SlotsPerEpoch) {
		if err := PerEpochProcessing(state, spec); err != nil {
			return &EpochProcessingError{Err: err}
		}
	}

	state.Slot++

	return nil
}

// cacheState writes the pre-transition state root into the historical rings
// at the current slot's index. The root must be computed before the slot
// counter moves; the slot is bumped temporarily so the ring setters accept
// the previous slot, then restored.
func cacheState(state *types.BeaconState, spec *config.ChainSpec) error {
	previousSlotStateRoot := state.CanonicalRoot()

	previousSlot := state.Slot
	state.Slot++
	defer func() { state.Slot = previousSlot }()

	// A block's true post-state root is only known after this step; backfill
	// the placeholder the proposer left behind.
	if state.LatestBlockHeader.StateRoot == spec.ZeroHash {
		state.LatestBlockHeader.StateRoot = previousSlotStateRoot
	}

	if err := state.SetStateRoot(previousSlot, previousSlotStateRoot); err != nil {
		return err
	}

	latestBlockRoot := state.LatestBlockHeader.CanonicalRoot()
	return state.SetBlockRoot(previousSlot, latestBlockRoot)
}
