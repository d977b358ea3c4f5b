package types

import (
	"encoding/hex"
	"fmt"
)

// Primitive consensus types.

type Slot uint64
type Epoch uint64
type Shard uint64
type Gwei uint64
type ValidatorIndex uint64

// Root is a 32-byte canonical content hash identifying a block or state.
type Root [32]byte

// PublicKey is an Ed25519 validator public key.
type PublicKey [32]byte

// Signature is an Ed25519 signature.
type Signature [64]byte

func (r Root) IsZero() bool { return r == Root{} }

// Short returns a short hex representation of the root (first 4 bytes).
func (r Root) Short() string {
	return fmt.Sprintf("%x", r[:4])
}

func (r Root) String() string {
	return hex.EncodeToString(r[:])
}

// Compare compares two roots lexicographically.
// Returns 1 if r > other, -1 if r < other, 0 if equal.
func (r Root) Compare(other Root) int {
	for i := 0; i < 32; i++ {
		if r[i] > other[i] {
			return 1
		}
		if r[i] < other[i] {
			return -1
		}
	}
	return 0
}

// Epoch returns the epoch containing the slot.
func (s Slot) Epoch(slotsPerEpoch uint64) Epoch {
	return Epoch(uint64(s) / slotsPerEpoch)
}

// StartSlot returns the first slot of the epoch.
func (e Epoch) StartSlot(slotsPerEpoch uint64) Slot {
	return Slot(uint64(e) * slotsPerEpoch)
}
