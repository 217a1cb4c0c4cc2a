package utils // package utils provides helper functions for identifiers, tokens and hashing

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a generator-assigned opaque primary key. Identifiers are
// random 128-bit values; callers must treat them as opaque strings.
func NewID() string {
	return uuid.NewString()
}

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data. It is used for verification and
// website token values, which are never caller-supplied.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
