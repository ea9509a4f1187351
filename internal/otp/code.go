// Package otp issues and verifies short-lived one-time codes used as the
// second authentication factor.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

const codeDigits = 6

// GenerateCode returns a uniformly random numeric code, zero-padded to six
// digits.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}

// HashCode returns the hex SHA-256 of the code. Only hashes are stored; a
// leaked challenge record does not leak the code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// CodeEqual compares a candidate against a stored hash in constant time.
func CodeEqual(hash, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(HashCode(candidate))) == 1
}
