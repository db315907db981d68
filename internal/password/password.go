// Package password wraps bcrypt hashing and verification for stored
// credentials. Plaintext never leaves this package's call frames.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost matches the work factor the upstream API registered users with, so
// existing digests keep verifying.
const Cost = 10

// Hash returns a salted bcrypt digest of plain. The salt is generated per
// call and baked into the digest.
func Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest. Comparison is constant-time
// inside bcrypt.
func Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
