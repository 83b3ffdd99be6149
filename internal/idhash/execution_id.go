package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeExecutionID computes a deterministic execution_id using SHA256.
// Formula: SHA256(instance_id|tx_hash|tx_index|payload)
// Returns hex-encoded hash (64 characters).
func ComputeExecutionID(
	instanceID string,
	txHash string,
	txIndex uint64,
	payloadHex string,
) string {
	data := fmt.Sprintf("%s|%s|%d|%s",
		instanceID,
		txHash,
		txIndex,
		payloadHex,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
