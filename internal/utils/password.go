package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt hashes without truncation.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned for passwords over MaxPasswordBytes.  The
// register validator counts runes, so multi-byte passwords can still hit it.
var ErrPasswordTooLong = errors.New("password longer than 72 bytes")

// PasswordCost clamps BCRYPT_COST into the range bcrypt accepts.  Zero or
// negative values fall back to bcrypt.DefaultCost.
func PasswordCost(cost int) int {
	switch {
	case cost <= 0:
		return bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		return bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		return bcrypt.MaxCost
	}
	return cost
}

// HashPassword hashes a new account password with the configured cost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost(cost))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored hash.  An empty
// hash never matches.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
