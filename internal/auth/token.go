package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// opaqueTokenBytes is the single token-length policy for registration,
// verification, and reset tokens: 20 random bytes, hex-encoded to 40 chars.
const opaqueTokenBytes = 20

// NewOpaqueToken mints a cryptographically random single-use token.
func NewOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// tokenDeadline returns the absolute expiry for a token minted now.
func tokenDeadline(ttl time.Duration) int64 {
	return time.Now().Add(ttl).Unix()
}
