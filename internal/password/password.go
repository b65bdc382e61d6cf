// Package password provides the salted one-way hashing primitive used by
// every component that touches a credential.
package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SaltBytes is the number of random bytes in a freshly generated salt.
const SaltBytes = 16

// NewSalt returns a hex-encoded salt from crypto/rand.
func NewSalt() (string, error) {
	b := make([]byte, SaltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Hash computes the keyed digest of password under salt. The salt string is
// the HMAC key, so the same password hashed under two different salts yields
// unrelated digests.
func Hash(password, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

// Generate hashes password under a fresh salt and returns both.
func Generate(password string) (hash, salt string, err error) {
	salt, err = NewSalt()
	if err != nil {
		return "", "", err
	}
	return Hash(password, salt), salt, nil
}

// Verify recomputes the digest and compares it to expected in constant time.
func Verify(password, salt, expected string) bool {
	return hmac.Equal([]byte(Hash(password, salt)), []byte(expected))
}
