package service

import "crypto/ed25519"

// Ed25519Verifier verifies order signatures against ledger-native ed25519
// public keys. It is the bundled implementation of SignatureVerifier;
// deployments with an external signature service swap it out at wiring.
type Ed25519Verifier struct{}

// Verify reports whether signature is a valid signature of message by the
// holder of publicKey.
func (Ed25519Verifier) Verify(message, signature, publicKey []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}
