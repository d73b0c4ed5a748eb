package serialization

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeChecksum computes SHA-256 checksum of data.
func ComputeChecksum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// FormatChecksum renders a checksum as lowercase hex.
func FormatChecksum(sum [32]byte) string {
	return hex.EncodeToString(sum[:])
}

// ParseChecksum parses 64 hex digits.
func ParseChecksum(s string) ([32]byte, bool) {
	var sum [32]byte
	if len(s) != 2*len(sum) {
		return sum, false
	}
	if _, err := hex.Decode(sum[:], []byte(s)); err != nil {
		return sum, false
	}
	return sum, true
}

// ValidateChecksum compares computed checksum against stored checksum.
// Returns ErrChecksumMismatch if they don't match.
func ValidateChecksum(computed, stored [32]byte) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}
