package cryptox

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt work factor used for every stored credential.
// Changing it only affects newly written hashes; verification reads the cost
// embedded in each hash.
const HashCost = 12

// ErrPasswordMismatch is returned when a candidate password does not match the
// stored hash.
var ErrPasswordMismatch = errors.New("cryptox: password does not match")

// HashPassword derives a bcrypt hash of the plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("cryptox: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext candidate against a stored bcrypt hash.
// It returns ErrPasswordMismatch for a wrong password and passes through any
// other bcrypt error (malformed hash, etc).
func VerifyPassword(candidate, storedHash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// GeneratePassword produces a random initial password for admin-provisioned
// accounts. The holder is expected to change it on first login.
func GeneratePassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 12
	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("cryptox: generate password: %w", err)
		}
		password[i] = charset[n.Int64()]
	}
	return string(password), nil
}
