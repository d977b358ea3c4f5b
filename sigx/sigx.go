// Package sigx signs and verifies consensus messages with Ed25519.
// Every message is bound to a signature domain before signing so a signature
// over one object kind cannot be replayed as another.
package sigx

import (
	"crypto/ed25519"
	"encoding/binary"

	"lumen/types"
)

// signingBytes is the domain-tagged message: root || big-endian domain.
func signingBytes(msg types.Root, domain uint64) []byte {
	out := make([]byte, len(msg)+8)
	copy(out, msg[:])
	binary.BigEndian.PutUint64(out[len(msg):], domain)
	return out
}

// Sign produces a domain-separated signature over msg.
func Sign(priv ed25519.PrivateKey, msg types.Root, domain uint64) types.Signature {
	var sig types.Signature
	copy(sig[:], ed25519.Sign(priv, signingBytes(msg, domain)))
	return sig
}

// Verify checks a domain-separated signature. Pure and deterministic.
func Verify(pub types.PublicKey, msg types.Root, domain uint64, sig types.Signature) bool {
	return ed25519.Verify(pub[:], signingBytes(msg, domain), sig[:])
}

// PublicKeyOf extracts the consensus public key from a private key.
func PublicKeyOf(priv ed25519.PrivateKey) types.PublicKey {
	var pub types.PublicKey
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return pub
}
