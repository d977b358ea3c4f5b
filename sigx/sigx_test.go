package sigx

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"

	"lumen/types"
)

func TestSignVerifyDomainSeparation(t *testing.T) {
	key := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))
	pub := PublicKeyOf(key)
	msg := types.HashBytes([]byte("payload"))

	sig := Sign(key, msg, 1)
	assert.True(t, Verify(pub, msg, 1, sig))

	// Same message under another domain must not verify.
	assert.False(t, Verify(pub, msg, 2, sig))
	assert.False(t, Verify(pub, types.HashBytes([]byte("other")), 1, sig))

	var zero types.Signature
	assert.False(t, Verify(pub, msg, 1, zero))
}

func TestPublicKeyOfMatchesStdlib(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 7
	key := ed25519.NewKeyFromSeed(seed)

	var want types.PublicKey
	copy(want[:], key.Public().(ed25519.PublicKey))
	assert.Equal(t, want, PublicKeyOf(key))
}
