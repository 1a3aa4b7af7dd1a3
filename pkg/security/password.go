package security

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed    = errors.New("password hashing failed")
	ErrPasswordMismatch = errors.New("password mismatch")
)

// Password storage modes
const (
	ModePlaintext = "plaintext"
	ModeBcrypt    = "bcrypt"
)

// PasswordHasher provides interface for password operations
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(stored, password string) error
}

// NewHasher returns the hasher for a configured mode. Unknown modes fall back
// to plaintext so fixture data written by older runs keeps working.
func NewHasher(mode string, cost int) PasswordHasher {
	if mode == ModeBcrypt {
		return NewBcryptHasher(cost)
	}
	return plaintextHasher{}
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a new password hasher using bcrypt
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashingFailed, err)
	}
	return string(bytes), nil
}

func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// plaintextHasher stores passwords as given. It exists only to read the
// original fixture layout and must not be used for real deployments.
type plaintextHasher struct{}

func (plaintextHasher) Hash(password string) (string, error) {
	return password, nil
}

func (plaintextHasher) Compare(stored, password string) error {
	if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}
