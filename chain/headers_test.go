package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/types"
)

func TestInsertHeaderTracksBestSlot(t *testing.T) {
	c, env := newTestEnv(t, 16)
	block := env.extendChain(t, c)
	require.Equal(t, types.Slot(1), c.BestHeaderSlot())

	// A header ahead of the chain advances the best known slot without a
	// body ever arriving.
	header := &types.BeaconBlockHeader{
		Slot:              9,
		PreviousBlockRoot: block.CanonicalRoot(),
		StateRoot:         types.HashBytes([]byte("remote state")),
		BlockBodyRoot:     types.HashBytes([]byte("remote body")),
	}
	advanced, err := c.InsertHeader(header)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, types.Slot(9), c.BestHeaderSlot())

	// An older header changes nothing.
	old := &types.BeaconBlockHeader{Slot: 3}
	advanced, err = c.InsertHeader(old)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, types.Slot(9), c.BestHeaderSlot())
}

func TestInsertBlockBodyFillsTrackedHeader(t *testing.T) {
	c, env := newTestEnv(t, 16)
	parent := env.extendChain(t, c)

	remote := &types.BeaconBlock{
		Slot:              7,
		PreviousBlockRoot: parent.CanonicalRoot(),
		StateRoot:         types.HashBytes([]byte("remote state")),
	}
	header := remote.Header()
	_, err := c.InsertHeader(&header)
	require.NoError(t, err)
	require.Equal(t, types.Slot(7), c.BestHeaderSlot())

	knownBlock, err := c.IsKnownBlock(remote.CanonicalRoot())
	require.NoError(t, err)
	assert.False(t, knownBlock)

	// The body arriving later fills the gap without moving the best slot.
	root, err := c.InsertBlockBody(remote)
	require.NoError(t, err)
	assert.Equal(t, remote.CanonicalRoot(), root)
	assert.Equal(t, types.Slot(7), c.BestHeaderSlot())

	knownBlock, err = c.IsKnownBlock(root)
	require.NoError(t, err)
	assert.True(t, knownBlock)
}

func TestIsKnownHeaderCoversBlocksAndHeaders(t *testing.T) {
	c, env := newTestEnv(t, 16)
	block := env.extendChain(t, c)

	// A stored block implies its header.
	known, err := c.IsKnownHeader(block.CanonicalRoot())
	require.NoError(t, err)
	assert.True(t, known)

	header := &types.BeaconBlockHeader{Slot: 4}
	_, err = c.InsertHeader(header)
	require.NoError(t, err)

	known, err = c.IsKnownHeader(header.CanonicalRoot())
	require.NoError(t, err)
	assert.True(t, known)

	// A bare header is not a known block.
	knownBlock, err := c.IsKnownBlock(header.CanonicalRoot())
	require.NoError(t, err)
	assert.False(t, knownBlock)

	known, err = c.IsKnownHeader(types.HashBytes([]byte("unseen")))
	require.NoError(t, err)
	assert.False(t, known)
}
