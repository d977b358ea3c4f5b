package transition

import (
	"testing"

	"github.com/OffchainLabs/go-bitfield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/config"
	"lumen/types"
)

// fullEpochAttestations builds pending attestations in which every committee
// of the state's current epoch attests to the given boundary root.
func fullEpochAttestations(state *types.BeaconState, boundaryRoot types.Root, spec *config.ChainSpec) []types.PendingAttestation {
	epochStart := state.CurrentEpoch(spec.SlotsPerEpoch).StartSlot(spec.SlotsPerEpoch)
	var pending []types.PendingAttestation
	for offset := uint64(0); offset < spec.SlotsPerEpoch; offset++ {
		slot := epochStart + types.Slot(offset)
		for shard := types.Shard(0); uint64(shard) < spec.ShardCount; shard++ {
			committee := state.CommitteeFor(slot, shard, spec.SlotsPerEpoch, spec.ShardCount)
			if len(committee) == 0 {
				continue
			}
			bits := bitfield.NewBitlist(uint64(len(committee)))
			for i := range committee {
				bits.SetBitAt(uint64(i), true)
			}
			pending = append(pending, types.PendingAttestation{
				AggregationBits: bits,
				Data: types.AttestationData{
					Slot:       slot,
					Shard:      shard,
					TargetRoot: boundaryRoot,
				},
				InclusionSlot: slot + 1,
			})
		}
	}
	return pending
}

func TestFullParticipationJustifiesEpoch(t *testing.T) {
	state, _, spec := newGenesisState(16)
	advanceSlots(t, state, spec, types.Slot(spec.SlotsPerEpoch)-1)

	boundaryRoot, err := state.BlockRoot(0)
	require.NoError(t, err)
	state.CurrentEpochAttestations = fullEpochAttestations(state, boundaryRoot, spec)

	// Cross into epoch 1.
	require.NoError(t, PerSlotProcessing(state, spec))

	assert.Equal(t, types.Epoch(0), state.CurrentJustifiedEpoch)
	assert.Equal(t, boundaryRoot, state.CurrentJustifiedRoot)
	assert.Equal(t, uint64(1), state.JustificationBitfield&1)
	assert.Equal(t, types.Epoch(0), state.FinalizedEpoch)
	assert.True(t, state.FinalizedRoot.IsZero(), "one justified epoch is not enough to finalize")

	// Attestation windows rotated.
	assert.Empty(t, state.CurrentEpochAttestations)
	assert.NotEmpty(t, state.PreviousEpochAttestations)
}

func TestTwoJustifiedEpochsFinalizeTheFirst(t *testing.T) {
	state, _, spec := newGenesisState(16)
	epochSlots := types.Slot(spec.SlotsPerEpoch)

	// Epoch 0 fully attested.
	advanceSlots(t, state, spec, epochSlots-1)
	firstBoundary, err := state.BlockRoot(0)
	require.NoError(t, err)
	state.CurrentEpochAttestations = fullEpochAttestations(state, firstBoundary, spec)
	require.NoError(t, PerSlotProcessing(state, spec))

	// Epoch 1 fully attested as well.
	advanceSlots(t, state, spec, 2*epochSlots-1)
	secondBoundary, err := state.BlockRoot(epochSlots)
	require.NoError(t, err)
	state.CurrentEpochAttestations = fullEpochAttestations(state, secondBoundary, spec)
	require.NoError(t, PerSlotProcessing(state, spec))

	assert.Equal(t, types.Epoch(1), state.CurrentJustifiedEpoch)
	assert.Equal(t, types.Epoch(0), state.PreviousJustifiedEpoch)
	assert.Equal(t, types.Epoch(0), state.FinalizedEpoch)
	assert.Equal(t, firstBoundary, state.FinalizedRoot)
}

func TestCrosslinksRecordSupermajorityShards(t *testing.T) {
	state, _, spec := newGenesisState(16)
	advanceSlots(t, state, spec, types.Slot(spec.SlotsPerEpoch)-1)

	boundaryRoot, err := state.BlockRoot(0)
	require.NoError(t, err)
	pending := fullEpochAttestations(state, boundaryRoot, spec)
	for i := range pending {
		pending[i].Data.CrosslinkDataRoot = types.HashBytes([]byte("shard data"))
	}
	state.CurrentEpochAttestations = pending

	require.NoError(t, PerSlotProcessing(state, spec))

	recorded := 0
	for _, link := range state.LatestCrosslinks {
		if !link.CrosslinkDataRoot.IsZero() {
			recorded++
		}
	}
	assert.Equal(t, int(spec.ShardCount), recorded, "every shard committee reached supermajority")
}

func TestRewardsFavorAttesters(t *testing.T) {
	state, _, spec := newGenesisState(16)
	epochSlots := types.Slot(spec.SlotsPerEpoch)

	// Epoch 0: everyone attests; rewards only start counting from epoch 1.
	advanceSlots(t, state, spec, epochSlots-1)
	boundary, err := state.BlockRoot(0)
	require.NoError(t, err)
	state.CurrentEpochAttestations = fullEpochAttestations(state, boundary, spec)
	require.NoError(t, PerSlotProcessing(state, spec))

	balancesBefore := append([]types.Gwei(nil), state.Balances...)

	// Epoch 1: nobody attests in epoch 1 itself, but the epoch 0 voters are
	// credited when the epoch closes.
	advanceSlots(t, state, spec, 2*epochSlots)

	for i := range state.Balances {
		assert.Greater(t, uint64(state.Balances[i]), uint64(balancesBefore[i]), "validator %d", i)
	}
}

func TestRegistryEjectsPoorValidators(t *testing.T) {
	state, _, spec := newGenesisState(8)
	state.Balances[3] = spec.EjectionBalance - 1

	advanceSlots(t, state, spec, types.Slot(spec.SlotsPerEpoch))

	assert.NotEqual(t, config.FarFutureEpoch, state.ValidatorRegistry[3].ExitEpoch)
	assert.Equal(t, config.FarFutureEpoch, state.ValidatorRegistry[0].ExitEpoch)
}
