package session

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used when none is configured.
const DefaultCost = bcrypt.DefaultCost

// Hasher hashes and verifies account passwords with bcrypt.
type Hasher struct {
	// Cost is the bcrypt work factor; 0 means DefaultCost. Tests use
	// bcrypt.MinCost.
	Cost int
}

// Hash returns the bcrypt hash of password. Passwords longer than 72 bytes
// are rejected.
func (h Hasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches hash.
func (h Hasher) Verify(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func isInputError(err error) bool {
	return errors.Is(err, bcrypt.ErrPasswordTooLong)
}
