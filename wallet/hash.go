package wallet

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashID derives the correlation key of a sensitive identifier. Event matching
// and logging use the derived key so the raw id never leaves the payload.
func HashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
