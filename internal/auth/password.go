package auth

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes; longer passwords are digested first.
const bcryptMaxBytes = 72

func bcryptInput(pw string) []byte {
	if len(pw) <= bcryptMaxBytes {
		return []byte(pw)
	}
	sum := sha256.Sum256([]byte(pw))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// HashPassword hashes a plaintext password using bcrypt with DefaultCost.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(bcryptInput(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword compares a bcrypt hash with a candidate plaintext password.
func CheckPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(pw))
}

// BcryptHasher adapts the package functions to the services' hasher interface.
type BcryptHasher struct{}

func (BcryptHasher) Hash(pw string) (string, error) { return HashPassword(pw) }
func (BcryptHasher) Verify(hash, pw string) error   { return CheckPassword(hash, pw) }
