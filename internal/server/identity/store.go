// Package identity implements the credential store: accounts, password
// verification, role assignments and email confirmation tokens.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/dmitrijs2005/usermanager/internal/server/models"
)

// Store is the capability set the authentication flows depend on. Any
// backing store satisfying it is substitutable.
type Store interface {
	// FindByEmail returns common.ErrorNotFound when no account has the email.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// Create hashes password, assigns ID and security stamp, and persists user.
	// It returns common.ErrorAlreadyExists when the email is taken.
	Create(ctx context.Context, user *models.User, password string) error
	CheckPassword(ctx context.Context, user *models.User, password string) bool
	RoleExists(ctx context.Context, role string) (bool, error)
	AddToRole(ctx context.Context, user *models.User, role string) error
	// GetRoles lists role names in store enumeration order.
	GetRoles(ctx context.Context, user *models.User) ([]string, error)
	// GenerateEmailConfirmationToken returns a raw token bound to the user
	// and the email the account has at issuance.
	GenerateEmailConfirmationToken(ctx context.Context, user *models.User) (string, error)
	// ConfirmEmail consumes token and marks the email verified. A token that
	// is unknown, used, expired or bound to another email yields
	// common.ErrorInvalidOrExpiredToken.
	ConfirmEmail(ctx context.Context, user *models.User, token string) error
}

// NormalizeEmail produces the lookup key used for uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToUpper(strings.TrimSpace(email))
}

// HashToken returns the hex SHA-256 of a raw confirmation token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
