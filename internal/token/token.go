// Package token generates and hashes single-use account tokens.
//
// Raw tokens travel to users over email links; only their SHA-256 hash is
// ever stored server-side, so a leaked database cannot be replayed.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// rawTokenBytes is the entropy of generated tokens (64 hex chars on the wire).
const rawTokenBytes = 32

// Generate returns a new cryptographically random raw token.
func Generate() (string, error) {
	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Hash returns the hex-encoded SHA-256 digest of a raw token.
// The digest is deterministic so it can be used for equality lookup.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
