// Package slotclock maps wall-clock time onto consensus slots.
package slotclock

import (
	"time"

	"lumen/types"
)

// SlotClock reports the present slot. ok is false when the time is before
// genesis; an error means the clock itself is unreadable.
type SlotClock interface {
	PresentSlot() (slot types.Slot, ok bool, err error)
}

// SystemClock derives slots from the system time, genesis time and slot
// duration.
type SystemClock struct {
	genesisSlot    types.Slot
	genesisTime    uint64
	secondsPerSlot uint64
	now            func() time.Time
}

// NewSystemClock creates a production clock.
func NewSystemClock(genesisSlot types.Slot, genesisTime, secondsPerSlot uint64) *SystemClock {
	return &SystemClock{
		genesisSlot:    genesisSlot,
		genesisTime:    genesisTime,
		secondsPerSlot: secondsPerSlot,
		now:            time.Now,
	}
}

func (c *SystemClock) PresentSlot() (types.Slot, bool, error) {
	now := c.now().Unix()
	if now < 0 || uint64(now) < c.genesisTime {
		return 0, false, nil
	}
	elapsed := (uint64(now) - c.genesisTime) / c.secondsPerSlot
	return c.genesisSlot + types.Slot(elapsed), true, nil
}

// SlotStartTime returns the unix timestamp at which a slot begins.
func (c *SystemClock) SlotStartTime(slot types.Slot) uint64 {
	return c.genesisTime + uint64(slot-c.genesisSlot)*c.secondsPerSlot
}

// TestClock is a manually-driven clock for tests.
type TestClock struct {
	Slot          types.Slot
	BeforeGenesis bool
	Err           error
}

// NewTestClock creates a test clock pinned at slot.
func NewTestClock(slot types.Slot) *TestClock {
	return &TestClock{Slot: slot}
}

func (c *TestClock) PresentSlot() (types.Slot, bool, error) {
	if c.Err != nil {
		return 0, false, c.Err
	}
	if c.BeforeGenesis {
		return 0, false, nil
	}
	return c.Slot, true, nil
}

// Advance moves the test clock forward by n slots.
func (c *TestClock) Advance(n uint64) {
	c.Slot += types.Slot(n)
}
