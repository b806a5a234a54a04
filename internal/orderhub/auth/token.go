package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"tableflow/internal/orderhub/app/core"
)

// NewOpaqueToken mints a server-generated high-entropy token and the digest
// it is stored under. Only the digest is persisted; the raw value exists
// once, on the wire to the client.
func NewOpaqueToken() (raw, hash string, err error) {
	buf := make([]byte, core.TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("minting token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken is the one-way digest used for token storage and lookup. Tokens
// are server-generated random values, so a salt-free digest is sufficient.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IsLegacyID reports whether the token has the fixed-length hex shape of a
// legacy session identifier, which is looked up as a primary key instead of
// being hashed.
func IsLegacyID(raw string) bool {
	if len(raw) != core.LegacyTokenLen {
		return false
	}
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
