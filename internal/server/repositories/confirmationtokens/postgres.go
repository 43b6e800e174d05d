package confirmationtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/dbx"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts token and fills in its ID and CreatedAt.
func (r *PostgresRepository) Create(ctx context.Context, token *models.ConfirmationToken) error {
	query := `
		INSERT INTO confirmation_tokens (user_id, email, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, token.UserID, token.Email, token.TokenHash, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// Consume is a single conditional UPDATE, so two concurrent confirmations
// of the same token cannot both succeed.
func (r *PostgresRepository) Consume(ctx context.Context, tokenHash, userID, email string, now time.Time) (*models.ConfirmationToken, error) {
	query := `
		UPDATE confirmation_tokens SET used_at = $4
		WHERE token_hash = $1 AND user_id = $2 AND email = $3
		  AND used_at IS NULL AND expires_at > $4
		RETURNING id, expires_at, created_at
	`
	t := &models.ConfirmationToken{UserID: userID, Email: email, TokenHash: tokenHash, UsedAt: &now}
	err := r.db.QueryRowContext(ctx, query, tokenHash, userID, email, now).Scan(&t.ID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
