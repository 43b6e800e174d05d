// Package users declares and implements persistence for user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/usermanager/internal/server/models"
)

// Repository stores accounts. Lookups are by normalized email, which is unique.
type Repository interface {
	// Create inserts user and fills in ID and CreatedAt. A duplicate normalized
	// email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByNormalizedEmail returns common.ErrorNotFound when absent.
	GetUserByNormalizedEmail(ctx context.Context, normalizedEmail string) (*models.User, error)

	// MarkEmailConfirmed sets the verified flag and stores a new security stamp.
	MarkEmailConfirmed(ctx context.Context, userID string, securityStamp string) error
}
