package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// KeyType returns the kind segment of a key produced by a [Keyer]:
// "artifact" for "artifact:ab12..." and for "scope:artifact:ab12...".
func KeyType(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return "unknown"
	}
	return parts[len(parts)-2]
}
