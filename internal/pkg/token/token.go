package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const alphanum = "abcdefghijklmnopqrstuvwxyz0123456789"

// Hash returns the hex SHA-256 of a bearer string. Only this digest is persisted.
func Hash(bearer string) string {
	sum := sha256.Sum256([]byte(bearer))
	return hex.EncodeToString(sum[:])
}

// Equal compares a presented bearer with a stored digest in constant time.
func Equal(bearer, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(bearer)), []byte(digest)) == 1
}

// RandomString returns n characters drawn from [a-z0-9].
func RandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random string: %w", err)
	}
	for i := range b {
		b[i] = alphanum[int(b[i])%len(alphanum)]
	}
	return string(b), nil
}
