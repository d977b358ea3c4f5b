package types

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// hasher accumulates container fields into a sha256 digest. Canonical roots
// are computed over the big-endian binary encoding of every field, in
// declaration order.
type hasher struct {
	h   hash.Hash
	buf [8]byte
}

func newHasher() *hasher {
	return &hasher{h: sha256.New()}
}

func (h *hasher) uint64(v uint64) {
	binary.BigEndian.PutUint64(h.buf[:], v)
	h.h.Write(h.buf[:])
}

func (h *hasher) root(r Root) {
	h.h.Write(r[:])
}

func (h *hasher) bytes(b []byte) {
	// Length-prefixed so adjacent variable-length fields cannot collide.
	h.uint64(uint64(len(b)))
	h.h.Write(b)
}

func (h *hasher) bool(v bool) {
	if v {
		h.h.Write([]byte{1})
	} else {
		h.h.Write([]byte{0})
	}
}

func (h *hasher) sum() Root {
	var out Root
	copy(out[:], h.h.Sum(nil))
	return out
}

// HashBytes returns the sha256 digest of b as a Root.
func HashBytes(b []byte) Root {
	return Root(sha256.Sum256(b))
}
