package transition

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/config"
	"lumen/sigx"
	"lumen/types"
)

func testValidators(n int) ([]ed25519.PrivateKey, []types.PublicKey) {
	keys := make([]ed25519.PrivateKey, n)
	pubkeys := make([]types.PublicKey, n)
	for i := range keys {
		seed := make([]byte, ed25519.SeedSize)
		seed[0] = byte(i + 1)
		keys[i] = ed25519.NewKeyFromSeed(seed)
		pubkeys[i] = sigx.PublicKeyOf(keys[i])
	}
	return keys, pubkeys
}

func newGenesisState(validators int) (*types.BeaconState, []ed25519.PrivateKey, *config.ChainSpec) {
	spec := config.MinimalSpec()
	keys, pubkeys := testValidators(validators)
	return GenesisState(spec, pubkeys, 0), keys, spec
}

func TestGenesisBlockRootEqualsBackfilledHeaderRoot(t *testing.T) {
	state, _, spec := newGenesisState(8)

	stateRoot := state.CanonicalRoot()
	genesisBlock := GenesisBlock(stateRoot, spec)

	require.NoError(t, PerSlotProcessing(state, spec))

	// After the first slot transition the zero state root in the stored
	// genesis header is backfilled, at which point the header identifies
	// the same block the store knows by its canonical root.
	cached, err := state.BlockRoot(spec.GenesisSlot)
	require.NoError(t, err)
	assert.Equal(t, genesisBlock.CanonicalRoot(), cached)

	cachedState, err := state.StateRoot(spec.GenesisSlot)
	require.NoError(t, err)
	assert.Equal(t, stateRoot, cachedState)
}

func TestPerSlotProcessingCachesEverySlot(t *testing.T) {
	state, _, spec := newGenesisState(8)

	const slots = 20
	for i := 0; i < slots; i++ {
		require.NoError(t, PerSlotProcessing(state, spec))
	}
	assert.Equal(t, types.Slot(slots), state.Slot)

	// Empty slots repeat the latest block root but carry distinct state
	// roots.
	firstBlockRoot, err := state.BlockRoot(0)
	require.NoError(t, err)
	for slot := types.Slot(1); slot < slots; slot++ {
		blockRoot, err := state.BlockRoot(slot)
		require.NoError(t, err)
		assert.Equal(t, firstBlockRoot, blockRoot)

		prev, err := state.StateRoot(slot - 1)
		require.NoError(t, err)
		cur, err := state.StateRoot(slot)
		require.NoError(t, err)
		assert.NotEqual(t, prev, cur, "slot %d", slot)
	}
}

func TestRingLookupsRejectOutOfWindowSlots(t *testing.T) {
	state, _, spec := newGenesisState(8)

	ring := types.Slot(spec.SlotsPerHistoricalRoot)
	for state.Slot < ring+8 {
		require.NoError(t, PerSlotProcessing(state, spec))
	}

	// Present and future slots have no cached root.
	_, err := state.BlockRoot(state.Slot)
	assert.ErrorIs(t, err, types.ErrSlotOutOfBounds)

	// Slots older than the ring window are gone.
	_, err = state.BlockRoot(state.Slot - ring - 1)
	assert.ErrorIs(t, err, types.ErrSlotOutOfBounds)

	// The oldest retained slot still resolves.
	_, err = state.BlockRoot(state.Slot - ring)
	assert.NoError(t, err)
}

func TestStateCopyIsIndependent(t *testing.T) {
	state, _, spec := newGenesisState(8)
	cp := state.Copy()

	require.NoError(t, PerSlotProcessing(state, spec))
	state.Balances[0] = 0

	assert.Equal(t, spec.GenesisSlot, cp.Slot)
	assert.Equal(t, spec.MaxDepositAmount, cp.Balances[0])
	assert.True(t, cp.LatestBlockHeader.StateRoot.IsZero())
}

func TestGenesisStateWithBalances(t *testing.T) {
	spec := config.MinimalSpec()
	_, pubkeys := testValidators(3)

	// A zero entry keeps the maximum deposit default.
	state := GenesisStateWithBalances(spec, pubkeys, []types.Gwei{20_000_000_000, 0}, 0)
	require.Len(t, state.Balances, 3)
	assert.Equal(t, types.Gwei(20_000_000_000), state.Balances[0])
	assert.Equal(t, spec.MaxDepositAmount, state.Balances[1])
	assert.Equal(t, spec.MaxDepositAmount, state.Balances[2])
}
