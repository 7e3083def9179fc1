package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestHexLen is the length of a lowercase-hex SHA-256 digest.
const DigestHexLen = sha256.Size * 2

// Sha256Hex returns the lowercase-hex SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
