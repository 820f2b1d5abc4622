// Package idempotency derives deterministic keys for job payloads so
// repeated runs over identical inputs can be detected.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash computes a stable sha256 hex digest for any JSON-serialisable
// payload. Map keys are sorted by the encoder, so equal payloads always
// produce equal hashes.
func Hash(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("hash payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
