package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ComputePatternID computes a deterministic pattern_id using SHA256.
// Formula: SHA256(dimension|segment|evidence_1,evidence_2,...)
// Evidence must already be sorted. Returns hex-encoded hash (64 characters).
func ComputePatternID(dimension, segment string, evidence []string) string {
	data := dimension + "|" + segment + "|" + strings.Join(evidence, ",")

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ShortID returns the first 12 characters of an id, for display.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
