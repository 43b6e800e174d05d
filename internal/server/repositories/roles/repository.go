// Package roles stores the fixed role set and user-to-role assignments.
package roles

import (
	"context"

	"github.com/dmitrijs2005/usermanager/internal/server/models"
)

type Repository interface {
	// FindByName matches case-insensitively and returns the stored spelling.
	FindByName(ctx context.Context, name string) (*models.Role, error)
	AssignToUser(ctx context.Context, userID string, roleID string) error
	// ListNamesForUser returns role names in assignment order.
	ListNamesForUser(ctx context.Context, userID string) ([]string, error)
}
