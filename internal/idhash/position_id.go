package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position_id using SHA256.
// Formula: SHA256(user_id|mint|signal_id)
// Returns hex-encoded hash (64 characters).
//
// Position rows are created by the trade executor, which runs outside this
// service; this helper pins the ID formula it must use. Keying on the
// originating signal means one executed signal can only ever open one
// position, even when the execution callback is retried, because the retry
// collides on the positions primary key.
func ComputePositionID(userID, mint, signalID string) string {
	data := fmt.Sprintf("%s|%s|%s", userID, mint, signalID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
