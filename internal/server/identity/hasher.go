package identity

import (
	"errors"
	"sync"

	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("password must not be empty")

// Hasher turns plaintext passwords into storable hashes and checks them.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// BcryptHasher hashes with bcrypt at Cost.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// decoyHash lazily hashes a password no account has. Checking a missing
// account against it costs as much as checking a real one.
func decoyHash(h Hasher) func() string {
	return sync.OnceValue(func() string {
		hash, _ := h.Hash("usermanager-decoy-password")
		return hash
	})
}

// checkPassword compares password with the account's hash, or with decoy
// when there is no account to check.
func checkPassword(h Hasher, decoy func() string, user *models.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		if decoy != nil {
			h.Compare(decoy(), password)
		}
		return false
	}
	return h.Compare(user.PasswordHash, password)
}
