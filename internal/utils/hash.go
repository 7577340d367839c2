package utils

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashRefreshToken returns base64(SHA-256(raw)).  Only this value is
// stored, so a leaked sessions table cannot be replayed.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.StdEncoding.EncodeToString(sum[:])
}
