package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func SHA256Hex(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}

// StableHash derives a reproducible identifier from the natural-key parts of
// an entity. The separator keeps ("ab","c") and ("a","bc") distinct.
func StableHash(parts ...string) string {
	return SHA256Hex([]byte(strings.Join(parts, "\x1f")))
}
