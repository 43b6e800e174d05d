// Package confirmationtokens persists single-use email confirmation tokens.
package confirmationtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.ConfirmationToken) error

	// Consume marks the token identified by tokenHash as used, provided it
	// belongs to userID, was issued for email, is unused and has not expired
	// at now. Any mismatch yields common.ErrorNotFound.
	Consume(ctx context.Context, tokenHash, userID, email string, now time.Time) (*models.ConfirmationToken, error)
}
