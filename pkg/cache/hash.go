package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Entry lifetimes.
const (
	// TTLArtifact bounds exports of a script; the key changes with the script
	// content, so entries only age out.
	TTLArtifact = 7 * 24 * time.Hour
	// TTLSnapshot bounds snapshots of a served graph. Revisions restart with
	// the server, so entries must not outlive it by much.
	TTLSnapshot = time.Hour
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
