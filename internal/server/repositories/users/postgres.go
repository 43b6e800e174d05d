package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/dbx"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, email, normalized_email, password_hash, security_stamp)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.NormalizedEmail, user.PasswordHash, user.SecurityStamp).
		Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByNormalizedEmail(ctx context.Context, normalizedEmail string) (*models.User, error) {
	query :=
		`SELECT id, username, email, normalized_email, password_hash, security_stamp, email_confirmed, created_at
		 FROM users
		 WHERE normalized_email = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, normalizedEmail).Scan(
		&user.ID, &user.UserName, &user.Email, &user.NormalizedEmail,
		&user.PasswordHash, &user.SecurityStamp, &user.EmailConfirmed, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) MarkEmailConfirmed(ctx context.Context, userID string, securityStamp string) error {
	query :=
		`UPDATE users SET email_confirmed = TRUE, security_stamp = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, securityStamp)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
