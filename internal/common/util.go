package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandURLToken generates size random bytes and encodes them with
// unpadded base64url, so the result can be placed in a query string as is.
func MakeRandURLToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
