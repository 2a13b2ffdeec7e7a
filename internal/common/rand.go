package common

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandByteArray returns size cryptographically random bytes.
// crypto/rand failures are unrecoverable, so it panics instead of
// returning an error.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandURLSafeString generates a URL-safe random string from size random
// bytes using unpadded base64url. The resulting string length is
// ceil(size*4/3), e.g. 43 characters for 32 bytes, 86 for 64 bytes.
func MakeRandURLSafeString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
