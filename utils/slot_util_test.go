package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEpochStart(t *testing.T) {
	assert.True(t, IsEpochStart(0, 8))
	assert.True(t, IsEpochStart(8, 8))
	assert.False(t, IsEpochStart(7, 8))
}

func TestEpochBoundary(t *testing.T) {
	// Advancing from the last slot of an epoch crosses the boundary.
	assert.True(t, EpochBoundary(7, 8))
	assert.True(t, EpochBoundary(15, 8))
	assert.False(t, EpochBoundary(8, 8))
	assert.False(t, EpochBoundary(0, 8))
}

func TestSlotsSince(t *testing.T) {
	assert.Equal(t, uint64(5), SlotsSince(3, 8))
	assert.Equal(t, uint64(0), SlotsSince(8, 8))
	assert.Equal(t, uint64(0), SlotsSince(9, 8), "clock behind start clamps to zero")
}
