package services

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the sha256 hex digest of rendered bytes. It doubles
// as the forgery-detection fingerprint and the idempotency key of a render.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
