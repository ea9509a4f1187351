package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost stays at the library default; raise it here if the hardware allows.
const passwordHashCost = bcrypt.DefaultCost

// HashPassword derives a bcrypt hash for storage. Empty input is rejected so
// a blank credential can never verify.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("auth: empty password hash")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
