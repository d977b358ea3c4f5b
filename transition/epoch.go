package transition

import (
	"lumen/config"
	"lumen/logx"
	"lumen/types"
)

// PerEpochProcessing runs the epoch transition: justification and
// finalization, crosslink updates, balance deltas, registry updates and
// randao rotation. Called with the state at the last slot of the closing
// epoch.
func PerEpochProcessing(state *types.BeaconState, spec *config.ChainSpec) error {
	currentEpoch := state.CurrentEpoch(spec.SlotsPerEpoch)

	if err := updateJustificationAndFinalization(state, spec); err != nil {
		return err
	}
	if err := processCrosslinks(state, spec); err != nil {
		return err
	}
	applyRewardsAndPenalties(state, spec)
	processRegistryUpdates(state, spec)

	// Rotate randomness and attestation windows into the next epoch.
	state.SetRandaoMix(currentEpoch+1, state.RandaoMix(currentEpoch))
	state.PreviousEpochAttestations = state.CurrentEpochAttestations
	state.CurrentEpochAttestations = nil

	return nil
}

func updateJustificationAndFinalization(state *types.BeaconState, spec *config.ChainSpec) error {
	currentEpoch := state.CurrentEpoch(spec.SlotsPerEpoch)
	genesisEpoch := spec.GenesisEpoch()

	totalBalance := types.Gwei(0)
	for _, index := range state.ActiveValidatorIndices(currentEpoch) {
		totalBalance += state.EffectiveBalance(index, spec.MaxDepositAmount)
	}
	if totalBalance == 0 {
		return nil
	}

	currentBoundaryRoot, err := state.BlockRoot(currentEpoch.StartSlot(spec.SlotsPerEpoch))
	if err != nil {
		return err
	}
	currentAttesting := boundaryAttestingBalance(state, state.CurrentEpochAttestations, currentBoundaryRoot, spec)

	previousAttesting := types.Gwei(0)
	previousBoundaryRoot := types.Root{}
	if currentEpoch > genesisEpoch {
		previousBoundaryRoot, err = state.BlockRoot((currentEpoch - 1).StartSlot(spec.SlotsPerEpoch))
		if err != nil {
			return err
		}
		previousAttesting = boundaryAttestingBalance(state, state.PreviousEpochAttestations, previousBoundaryRoot, spec)
	}

	oldPreviousJustifiedEpoch := state.PreviousJustifiedEpoch
	oldPreviousJustifiedRoot := state.PreviousJustifiedRoot
	oldCurrentJustifiedEpoch := state.CurrentJustifiedEpoch
	oldCurrentJustifiedRoot := state.CurrentJustifiedRoot

	state.PreviousJustifiedEpoch = state.CurrentJustifiedEpoch
	state.PreviousJustifiedRoot = state.CurrentJustifiedRoot
	state.JustificationBitfield <<= 1

	if currentEpoch > genesisEpoch && 3*previousAttesting >= 2*totalBalance {
		state.CurrentJustifiedEpoch = currentEpoch - 1
		state.CurrentJustifiedRoot = previousBoundaryRoot
		state.JustificationBitfield |= 2
	}
	if 3*currentAttesting >= 2*totalBalance {
		state.CurrentJustifiedEpoch = currentEpoch
		state.CurrentJustifiedRoot = currentBoundaryRoot
		state.JustificationBitfield |= 1
	}

	// Finalization looks at the justification pattern of the last four
	// epochs. The stored justified roots double as finalization targets, so
	// no ring lookup past the retained window is needed.
	bits := state.JustificationBitfield
	finalize := func(epoch types.Epoch, root types.Root) {
		state.FinalizedEpoch = epoch
		state.FinalizedRoot = root
		logx.Info("transition", "finalized epoch ", uint64(epoch), " root ", root.Short())
	}
	if currentEpoch >= 3 && bits>>1&7 == 7 && oldPreviousJustifiedEpoch == currentEpoch-3 {
		finalize(oldPreviousJustifiedEpoch, oldPreviousJustifiedRoot)
	}
	if currentEpoch >= 2 && bits>>1&3 == 3 && oldPreviousJustifiedEpoch == currentEpoch-2 {
		finalize(oldPreviousJustifiedEpoch, oldPreviousJustifiedRoot)
	}
	if currentEpoch >= 2 && bits&7 == 7 && oldCurrentJustifiedEpoch == currentEpoch-2 {
		finalize(oldCurrentJustifiedEpoch, oldCurrentJustifiedRoot)
	}
	if currentEpoch >= 1 && bits&3 == 3 && oldCurrentJustifiedEpoch == currentEpoch-1 {
		finalize(oldCurrentJustifiedEpoch, oldCurrentJustifiedRoot)
	}

	return nil
}

// boundaryAttestingBalance sums the effective balances of the validators
// that attested to the given epoch-boundary root.
func boundaryAttestingBalance(state *types.BeaconState, attestations []types.PendingAttestation, boundaryRoot types.Root, spec *config.ChainSpec) types.Gwei {
	seen := make(map[types.ValidatorIndex]bool)
	total := types.Gwei(0)
	for i := range attestations {
		pending := &attestations[i]
		if pending.Data.TargetRoot != boundaryRoot {
			continue
		}
		committee := state.CommitteeFor(pending.Data.Slot, pending.Data.Shard, spec.SlotsPerEpoch, spec.ShardCount)
		if pending.AggregationBits.Len() != uint64(len(committee)) {
			continue
		}
		for pos, index := range committee {
			if pending.AggregationBits.BitAt(uint64(pos)) && !seen[index] {
				seen[index] = true
				total += state.EffectiveBalance(index, spec.MaxDepositAmount)
			}
		}
	}
	return total
}

// processCrosslinks records a new crosslink for every shard whose committee
// reached a supermajority this epoch.
func processCrosslinks(state *types.BeaconState, spec *config.ChainSpec) error {
	pending := make([]types.PendingAttestation, 0, len(state.PreviousEpochAttestations)+len(state.CurrentEpochAttestations))
	pending = append(pending, state.PreviousEpochAttestations...)
	pending = append(pending, state.CurrentEpochAttestations...)

	for i := range pending {
		att := &pending[i]
		committee := state.CommitteeFor(att.Data.Slot, att.Data.Shard, spec.SlotsPerEpoch, spec.ShardCount)
		if len(committee) == 0 || att.AggregationBits.Len() != uint64(len(committee)) {
			continue
		}
		committeeBalance := types.Gwei(0)
		attestingBalance := types.Gwei(0)
		for pos, index := range committee {
			balance := state.EffectiveBalance(index, spec.MaxDepositAmount)
			committeeBalance += balance
			if att.AggregationBits.BitAt(uint64(pos)) {
				attestingBalance += balance
			}
		}
		if 3*attestingBalance >= 2*committeeBalance {
			state.LatestCrosslinks[att.Data.Shard] = types.Crosslink{
				Epoch:             att.Data.Slot.Epoch(spec.SlotsPerEpoch),
				CrosslinkDataRoot: att.Data.CrosslinkDataRoot,
			}
		}
	}
	return nil
}

// baseReward is the per-epoch reward unit for a validator.
func baseReward(state *types.BeaconState, index types.ValidatorIndex, spec *config.ChainSpec) types.Gwei {
	return state.EffectiveBalance(index, spec.MaxDepositAmount) / 2048
}

// applyRewardsAndPenalties credits validators that attested in the closing
// epoch and debits active validators that did not.
func applyRewardsAndPenalties(state *types.BeaconState, spec *config.ChainSpec) {
	currentEpoch := state.CurrentEpoch(spec.SlotsPerEpoch)

	attested := make(map[types.ValidatorIndex]bool)
	for i := range state.PreviousEpochAttestations {
		pending := &state.PreviousEpochAttestations[i]
		committee := state.CommitteeFor(pending.Data.Slot, pending.Data.Shard, spec.SlotsPerEpoch, spec.ShardCount)
		if pending.AggregationBits.Len() != uint64(len(committee)) {
			continue
		}
		for pos, index := range committee {
			if pending.AggregationBits.BitAt(uint64(pos)) {
				attested[index] = true
			}
		}
	}

	if currentEpoch == spec.GenesisEpoch() {
		return
	}

	for _, index := range state.ActiveValidatorIndices(currentEpoch) {
		reward := baseReward(state, index, spec)
		if attested[index] {
			state.Balances[index] += reward
		} else if state.Balances[index] >= reward {
			state.Balances[index] -= reward
		} else {
			state.Balances[index] = 0
		}
	}
}

// processRegistryUpdates ejects active validators whose balance fell below
// the ejection threshold.
func processRegistryUpdates(state *types.BeaconState, spec *config.ChainSpec) {
	currentEpoch := state.CurrentEpoch(spec.SlotsPerEpoch)
	for i := range state.ValidatorRegistry {
		validator := &state.ValidatorRegistry[i]
		if !validator.IsActiveAt(currentEpoch) {
			continue
		}
		if validator.ExitEpoch == config.FarFutureEpoch && state.Balances[i] < spec.EjectionBalance {
			validator.ExitEpoch = currentEpoch + 1
			logx.Info("transition", "ejected validator ", i, " below ejection balance")
		}
	}
}
