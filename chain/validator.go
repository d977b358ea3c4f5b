package chain

import "lumen/types"

// ValidatorIndex resolves a validator's registry index by public key.
func (c *BeaconChain) ValidatorIndex(pubkey types.PublicKey) (types.ValidatorIndex, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state.ValidatorIndexByPubkey(pubkey)
}

// BlockProposer returns the proposer for a slot in the working state's
// current epoch.
func (c *BeaconChain) BlockProposer(slot types.Slot) (types.ValidatorIndex, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state.BeaconProposerIndex(slot, c.spec.SlotsPerEpoch)
}

// ValidatorAttestationSlotAndShard returns the slot and shard a validator is
// assigned to attest in during the working state's current epoch. ok is
// false for validators with no assignment this epoch.
func (c *BeaconChain) ValidatorAttestationSlotAndShard(index types.ValidatorIndex) (types.Slot, types.Shard, bool, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	duty, ok, err := c.state.AttestationDutyFor(index, c.spec.SlotsPerEpoch, c.spec.ShardCount)
	if err != nil || !ok {
		return 0, 0, false, err
	}
	return duty.Slot, duty.Shard, true, nil
}

// ProduceAttestationData builds the attestation data a committee member on
// the given shard should sign at the working state's current slot.
func (c *BeaconChain) ProduceAttestationData(shard types.Shard) (*types.AttestationData, error) {
	c.stateMu.RLock()
	state := c.state
	c.stateMu.RUnlock()
	headRoot := c.HeadRoot()

	epochStart := state.CurrentEpoch(c.spec.SlotsPerEpoch).StartSlot(c.spec.SlotsPerEpoch)

	// At the first slot of an epoch the boundary block is the head itself;
	// the ring only holds roots for slots strictly before the state's.
	var targetRoot types.Root
	if state.Slot == epochStart {
		targetRoot = headRoot
	} else {
		var err error
		targetRoot, err = state.BlockRoot(epochStart)
		if err != nil {
			return nil, err
		}
	}

	var previousCrosslink types.Crosslink
	if int(shard) < len(state.LatestCrosslinks) {
		previousCrosslink = state.LatestCrosslinks[shard]
	}

	return &types.AttestationData{
		Slot:              state.Slot,
		Shard:             shard,
		BeaconBlockRoot:   headRoot,
		TargetRoot:        targetRoot,
		CrosslinkDataRoot: c.spec.ZeroHash,
		PreviousCrosslink: previousCrosslink,
		SourceEpoch:       state.CurrentJustifiedEpoch,
		SourceRoot:        state.CurrentJustifiedRoot,
	}, nil
}
