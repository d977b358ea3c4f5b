package utils

import (
	"lumen/types"
)

// IsEpochStart reports whether slot is the first slot of its epoch.
func IsEpochStart(slot types.Slot, slotsPerEpoch uint64) bool {
	return uint64(slot)%slotsPerEpoch == 0
}

// EpochBoundary reports whether advancing from slot crosses into a new
// epoch, i.e. slot+1 starts an epoch.
func EpochBoundary(slot types.Slot, slotsPerEpoch uint64) bool {
	return (uint64(slot)+1)%slotsPerEpoch == 0
}

// SlotsSince returns the number of slots elapsed from start to now, or 0 if
// now precedes start.
func SlotsSince(start, now types.Slot) uint64 {
	if now < start {
		return 0
	}
	return uint64(now - start)
}
