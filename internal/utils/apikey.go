package utils

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// HashAPIKey returns a bcrypt hash of a gate API key for out-of-band
// provisioning, so the plaintext secret never has to sit in the
// service environment.
func HashAPIKey(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyAPIKeyHash safely compares a bcrypt hash and a presented key.
func VerifyAPIKeyHash(hash, presented string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)) == nil
}

// EqualAPIKeys compares two plain keys in constant time. Both sides
// are digested first so the comparison length never depends on the
// secret.
func EqualAPIKeys(a, b string) bool {
	da := sha256.Sum256([]byte(a))
	db := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(da[:], db[:]) == 1
}
