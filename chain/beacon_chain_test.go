package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/forkchoice"
	"lumen/transition"
	"lumen/types"
)

func TestFromGenesisInitializesHeads(t *testing.T) {
	c, env := newTestEnv(t, 16)

	head := c.CanonicalHead()
	finalized := c.FinalizedHead()
	assert.Equal(t, head.BlockRoot, finalized.BlockRoot)
	assert.Equal(t, env.spec.GenesisSlot, head.Block.Slot)
	assert.Equal(t, env.spec.ZeroHash, head.Block.PreviousBlockRoot)

	stored, err := env.store.GetBlock(head.BlockRoot)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, head.BlockRoot, stored.CanonicalRoot())

	// The genesis block's declared state root must match the state it
	// claims to have produced.
	state, err := env.store.GetState(stored.StateRoot)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, stored.StateRoot, state.CanonicalRoot())
}

func TestProcessBlockFromFutureSlot(t *testing.T) {
	c, env := newTestEnv(t, 16)
	genesisRoot := c.HeadRoot()
	genesisState, err := env.store.GetState(c.CanonicalHead().StateRoot)
	require.NoError(t, err)

	// Build a valid block for slot 1 while the working state still sits at
	// the genesis slot.
	blockState := genesisState.Copy()
	require.NoError(t, transition.PerSlotProcessing(blockState, env.spec))
	block := &types.BeaconBlock{
		Slot:              blockState.Slot,
		PreviousBlockRoot: genesisRoot,
		StateRoot:         env.spec.ZeroHash,
		Signature:         env.spec.EmptySignature,
	}
	block.Body.RandaoReveal = env.randaoReveal(t, blockState, block.Slot)
	block.Body.Eth1Data = blockState.LatestEth1Data
	require.NoError(t, transition.PerBlockProcessingWithoutVerifyingBlockSignature(blockState, block, env.spec))
	block.StateRoot = blockState.CanonicalRoot()
	env.signBlock(t, block, blockState)

	outcome, err := c.ProcessBlock(block)
	require.NoError(t, err)
	assert.Equal(t, FutureSlot, outcome)
	assert.True(t, outcome.Invalid())

	// Once the working state catches up the same block is accepted.
	env.clock.Advance(1)
	require.NoError(t, c.UpdateState())
	outcome, err = c.ProcessBlock(block)
	require.NoError(t, err)
	assert.Equal(t, ValidBlock, outcome)
}

func TestProcessBlockParentUnknown(t *testing.T) {
	c, env := newTestEnv(t, 16)

	env.clock.Advance(1)
	require.NoError(t, c.UpdateState())
	state := c.State()
	parent, parentPost, err := c.ProduceBlock(env.randaoReveal(t, state, state.Slot))
	require.NoError(t, err)
	env.signBlock(t, parent, parentPost)

	// Build the child without submitting the parent.
	env.clock.Advance(1)
	childState := parentPost.Copy()
	require.NoError(t, transition.PerSlotProcessing(childState, env.spec))
	child := &types.BeaconBlock{
		Slot:              childState.Slot,
		PreviousBlockRoot: parent.CanonicalRoot(),
		StateRoot:         env.spec.ZeroHash,
		Signature:         env.spec.EmptySignature,
	}
	child.Body.RandaoReveal = env.randaoReveal(t, childState, child.Slot)
	child.Body.Eth1Data = childState.LatestEth1Data
	require.NoError(t, transition.PerBlockProcessingWithoutVerifyingBlockSignature(childState, child, env.spec))
	child.StateRoot = childState.CanonicalRoot()
	env.signBlock(t, child, childState)

	outcome, err := c.ProcessBlock(child)
	require.NoError(t, err)
	assert.Equal(t, ParentUnknown, outcome)
	assert.False(t, outcome.Invalid(), "missing context must not look like a bad block")

	// Parent arrives, then the child goes through on resubmission.
	outcome, err = c.ProcessBlock(parent)
	require.NoError(t, err)
	require.Equal(t, ValidBlock, outcome)
	outcome, err = c.ProcessBlock(child)
	require.NoError(t, err)
	assert.Equal(t, ValidBlock, outcome)
	assert.Equal(t, child.CanonicalRoot(), c.HeadRoot())
}

func TestProcessBlockStateRootMismatch(t *testing.T) {
	c, env := newTestEnv(t, 16)

	env.clock.Advance(1)
	require.NoError(t, c.UpdateState())
	state := c.State()
	block, postState, err := c.ProduceBlock(env.randaoReveal(t, state, state.Slot))
	require.NoError(t, err)

	block.StateRoot = types.HashBytes([]byte("not the post state"))
	env.signBlock(t, block, postState)

	outcome, err := c.ProcessBlock(block)
	require.NoError(t, err)
	assert.Equal(t, StateRootMismatch, outcome)
	assert.True(t, outcome.Invalid())

	isNew, err := c.IsNewBlockRoot(block.CanonicalRoot())
	require.NoError(t, err)
	assert.True(t, isNew, "rejected blocks must not be stored")
}

func TestProcessBlockBadProposerSignature(t *testing.T) {
	c, env := newTestEnv(t, 16)

	env.clock.Advance(1)
	require.NoError(t, c.UpdateState())
	state := c.State()
	block, _, err := c.ProduceBlock(env.randaoReveal(t, state, state.Slot))
	require.NoError(t, err)
	// Signature left empty.

	outcome, err := c.ProcessBlock(block)
	require.NoError(t, err)
	assert.Equal(t, PerBlockProcessingError, outcome)
	assert.True(t, outcome.Invalid())
}

func TestExtendChainAcrossEpochs(t *testing.T) {
	c, env := newTestEnv(t, 16)

	blocks := int(env.spec.SlotsPerEpoch)*2 + 1
	var last *types.BeaconBlock
	for i := 0; i < blocks; i++ {
		last = env.extendChain(t, c)
	}

	head := c.CanonicalHead()
	assert.Equal(t, last.CanonicalRoot(), head.BlockRoot)
	assert.Equal(t, types.Slot(blocks), head.Block.Slot)
	assert.Equal(t, types.Slot(blocks), c.BestHeaderSlot())

	slots, err := c.SlotsSinceGenesis()
	require.NoError(t, err)
	assert.Equal(t, uint64(blocks), slots)
}

func TestEagerHeadUpdateAndForkChoice(t *testing.T) {
	c, env := newTestEnv(t, 16)
	genesisRoot := c.HeadRoot()
	genesisState, err := env.store.GetState(c.CanonicalHead().StateRoot)
	require.NoError(t, err)

	// First child of genesis wins the head on arrival.
	first := env.extendChain(t, c)
	require.Equal(t, first.CanonicalRoot(), c.HeadRoot())

	// A competing branch from genesis reaching a higher slot does not move
	// the head on arrival.
	env.clock.Advance(1)
	forkState := genesisState.Copy()
	for forkState.Slot < 2 {
		require.NoError(t, transition.PerSlotProcessing(forkState, env.spec))
	}
	fork := &types.BeaconBlock{
		Slot:              forkState.Slot,
		PreviousBlockRoot: genesisRoot,
		StateRoot:         env.spec.ZeroHash,
		Signature:         env.spec.EmptySignature,
	}
	fork.Body.RandaoReveal = env.randaoReveal(t, forkState, fork.Slot)
	fork.Body.Eth1Data = forkState.LatestEth1Data
	require.NoError(t, transition.PerBlockProcessingWithoutVerifyingBlockSignature(forkState, fork, env.spec))
	fork.StateRoot = forkState.CanonicalRoot()
	env.signBlock(t, fork, forkState)

	outcome, err := c.ProcessBlock(fork)
	require.NoError(t, err)
	require.Equal(t, ValidBlock, outcome)
	assert.Equal(t, first.CanonicalRoot(), c.HeadRoot(), "side fork must not displace the head on arrival")

	// Fork choice settles on the longer branch.
	require.NoError(t, c.RunForkChoice())
	assert.Equal(t, fork.CanonicalRoot(), c.HeadRoot())
	assert.Equal(t, forkState.Slot, c.State().Slot)
}

func TestRestartResumesFromStore(t *testing.T) {
	c, env := newTestEnv(t, 16)
	for i := 0; i < 5; i++ {
		env.extendChain(t, c)
	}
	headRoot := c.HeadRoot()

	// A new chain over the same store ignores the supplied genesis state
	// and picks up where the old one stopped.
	_, pubkeys := testKeys(16)
	resumed, err := FromGenesis(env.store, env.clock, forkchoice.NewLongestChain(),
		transition.GenesisState(env.spec, pubkeys, 0), env.spec)
	require.NoError(t, err)

	assert.Equal(t, headRoot, resumed.HeadRoot())
	assert.Equal(t, types.Slot(5), resumed.CanonicalHead().Block.Slot)

	// And it keeps extending.
	block := env.extendChain(t, resumed)
	assert.Equal(t, block.CanonicalRoot(), resumed.HeadRoot())
}

func TestUpdateStateClockError(t *testing.T) {
	c, env := newTestEnv(t, 16)
	env.clock.Err = assert.AnError

	assert.Error(t, c.UpdateState())
}

func TestPresentSlotAndSlotClock(t *testing.T) {
	c, env := newTestEnv(t, 16)
	env.extendChain(t, c)

	assert.Equal(t, types.Slot(1), c.PresentSlot())

	clockSlot, ok, err := c.ReadSlotClock()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Slot(1), clockSlot)

	// With the clock ahead, UpdateState fills the gap with empty slots.
	env.clock.Advance(2)
	require.NoError(t, c.UpdateState())
	assert.Equal(t, types.Slot(3), c.PresentSlot())
}
