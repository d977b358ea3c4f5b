package chain

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"lumen/config"
	"lumen/db"
	"lumen/forkchoice"
	"lumen/sigx"
	"lumen/slotclock"
	"lumen/store"
	"lumen/transition"
	"lumen/types"
)

// testEnv bundles a chain with the validator keys behind its registry and
// the clock driving it.
type testEnv struct {
	spec  *config.ChainSpec
	keys  []ed25519.PrivateKey
	clock *slotclock.TestClock
	store store.Store
}

func testKeys(n int) ([]ed25519.PrivateKey, []types.PublicKey) {
	keys := make([]ed25519.PrivateKey, n)
	pubkeys := make([]types.PublicKey, n)
	for i := range keys {
		seed := make([]byte, ed25519.SeedSize)
		seed[0] = byte(i + 1)
		seed[1] = byte(i >> 8)
		keys[i] = ed25519.NewKeyFromSeed(seed)
		pubkeys[i] = sigx.PublicKeyOf(keys[i])
	}
	return keys, pubkeys
}

func newTestEnv(t *testing.T, validators int) (*BeaconChain, *testEnv) {
	t.Helper()

	env := &testEnv{
		spec:  config.MinimalSpec(),
		clock: slotclock.NewTestClock(0),
		store: store.NewKVStore(db.NewMemoryProvider()),
	}

	var pubkeys []types.PublicKey
	env.keys, pubkeys = testKeys(validators)
	genesisState := transition.GenesisState(env.spec, pubkeys, 0)

	c, err := FromGenesis(env.store, env.clock, forkchoice.NewLongestChain(), genesisState, env.spec)
	require.NoError(t, err)
	return c, env
}

// signBlock fills in the proposer signature for a produced block.
func (e *testEnv) signBlock(t *testing.T, block *types.BeaconBlock, state *types.BeaconState) {
	t.Helper()
	proposer, err := state.BeaconProposerIndex(block.Slot, e.spec.SlotsPerEpoch)
	require.NoError(t, err)
	block.Signature = sigx.Sign(e.keys[proposer], block.SigningRoot(), config.DomainBeaconProposer)
}

// randaoReveal signs the epoch of slot with the slot's proposer key.
func (e *testEnv) randaoReveal(t *testing.T, state *types.BeaconState, slot types.Slot) types.Signature {
	t.Helper()
	proposer, err := state.BeaconProposerIndex(slot, e.spec.SlotsPerEpoch)
	require.NoError(t, err)
	epoch := slot.Epoch(e.spec.SlotsPerEpoch)
	return sigx.Sign(e.keys[proposer], transition.RandaoSigningRoot(epoch), config.DomainRandao)
}

// extendChain advances the clock one slot, produces a block on the head,
// signs it and submits it. Returns the accepted block.
func (e *testEnv) extendChain(t *testing.T, c *BeaconChain) *types.BeaconBlock {
	t.Helper()

	e.clock.Advance(1)
	require.NoError(t, c.UpdateState())

	state := c.State()
	block, postState, err := c.ProduceBlock(e.randaoReveal(t, state, state.Slot))
	require.NoError(t, err)
	e.signBlock(t, block, postState)

	outcome, err := c.ProcessBlock(block)
	require.NoError(t, err)
	require.Equal(t, ValidBlock, outcome, "outcome was %s", outcome)
	return block
}
