package transition

import (
	"lumen/config"
	"lumen/types"
)

// GenesisState builds the state at the genesis slot from the initial
// validator set. Every genesis validator starts active with the maximum
// deposit balance.
func GenesisState(spec *config.ChainSpec, pubkeys []types.PublicKey, genesisTime uint64) *types.BeaconState {
	return GenesisStateWithBalances(spec, pubkeys, nil, genesisTime)
}

// GenesisStateWithBalances is GenesisState with per-validator starting
// balances. A nil slice, or a zero entry, keeps the maximum deposit default.
func GenesisStateWithBalances(spec *config.ChainSpec, pubkeys []types.PublicKey, startingBalances []types.Gwei, genesisTime uint64) *types.BeaconState {
	validators := make([]types.Validator, len(pubkeys))
	balances := make([]types.Gwei, len(pubkeys))
	for i, pk := range pubkeys {
		validators[i] = types.Validator{
			Pubkey:          pk,
			ActivationEpoch: spec.GenesisEpoch(),
			ExitEpoch:       config.FarFutureEpoch,
		}
		balances[i] = spec.MaxDepositAmount
		if i < len(startingBalances) && startingBalances[i] > 0 {
			balances[i] = startingBalances[i]
		}
	}

	state := &types.BeaconState{
		Slot:              spec.GenesisSlot,
		GenesisTime:       genesisTime,
		ValidatorRegistry: validators,
		Balances:          balances,
		LatestBlockRoots:  make([]types.Root, spec.SlotsPerHistoricalRoot),
		LatestStateRoots:  make([]types.Root, spec.SlotsPerHistoricalRoot),
		LatestRandaoMixes: make([]types.Root, spec.RandaoMixesLength),
		LatestCrosslinks:  make([]types.Crosslink, spec.ShardCount),

		PreviousJustifiedEpoch: spec.GenesisEpoch(),
		CurrentJustifiedEpoch:  spec.GenesisEpoch(),
		FinalizedEpoch:         spec.GenesisEpoch(),
	}

	// The genesis header carries a zero state root; the first slot
	// transition backfills it, at which point the header root equals the
	// genesis block's canonical root.
	state.LatestBlockHeader = types.BeaconBlockHeader{
		Slot:              spec.GenesisSlot,
		PreviousBlockRoot: spec.ZeroHash,
		StateRoot:         spec.ZeroHash,
		BlockBodyRoot:     emptyBodyRoot(),
		Signature:         spec.EmptySignature,
	}

	return state
}

// GenesisBlock builds the block whose application produced the genesis
// state.
func GenesisBlock(stateRoot types.Root, spec *config.ChainSpec) *types.BeaconBlock {
	return &types.BeaconBlock{
		Slot:              spec.GenesisSlot,
		PreviousBlockRoot: spec.ZeroHash,
		StateRoot:         stateRoot,
		Signature:         spec.EmptySignature,
	}
}

func emptyBodyRoot() types.Root {
	body := types.BeaconBlockBody{}
	return body.CanonicalRoot()
}
