package tiktok

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// HashValue normalizes a PII value (trimmed, lowercased) and returns its
// SHA-256 digest as lowercase hex. Trimming also strips byte order marks.
func HashValue(value string) string {
	trimmed := strings.TrimFunc(value, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
	sum := sha256.Sum256([]byte(strings.ToLower(trimmed)))
	return hex.EncodeToString(sum[:])
}
