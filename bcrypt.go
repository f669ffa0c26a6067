package pinauth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor applied to OTP codes and PINs. Both are
// short numeric secrets, so the cost carries most of the defense.
var BcryptCost = 12

// HashSecret generates a one-way hash for an OTP code or PIN.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	return string(h), err
}

// CompareSecretAndHash validates that the given cleartext secret matches
// the stored hash. The comparison is constant-time via bcrypt.
func CompareSecretAndHash(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
