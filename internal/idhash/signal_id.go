package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal_id using SHA256.
// Formula: SHA256(user_id|mint|created_at_ms)
// Returns hex-encoded hash (64 characters).
//
// Determinism is deliberate: a retried issue for the same user/mint/instant
// produces the same ID and collides on the store's primary key instead of
// creating a duplicate signal.
func ComputeSignalID(userID, mint string, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", userID, mint, createdAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
