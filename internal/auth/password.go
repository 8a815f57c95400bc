package auth

import (
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for password hashes. Raising it invalidates
// nothing (cost is embedded per hash) but slows every login.
const bcryptCost = bcrypt.DefaultCost

// HashPassword generates a bcrypt hash for the given password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
// Any comparison failure reads as a mismatch; unexpected errors (corrupt
// hash in storage) are logged but still reported as a failed check.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			log.Printf("WARN: unexpected bcrypt comparison failure: %v", err)
		}
		return false
	}
	return true
}
