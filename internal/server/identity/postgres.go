package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/dbx"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/dmitrijs2005/usermanager/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PostgresStore is a Store over the PostgreSQL repositories.
type PostgresStore struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	hasher        Hasher
	decoy         func() string
	tokenValidity time.Duration
	now           func() time.Time
}

func NewPostgresStore(db *sql.DB, m repomanager.RepositoryManager, hasher Hasher, tokenValidity time.Duration) *PostgresStore {
	return &PostgresStore{
		db:            db,
		repomanager:   m,
		hasher:        hasher,
		decoy:         decoyHash(hasher),
		tokenValidity: tokenValidity,
		now:           time.Now,
	}
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetUserByNormalizedEmail(ctx, NormalizeEmail(email))
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.NormalizedEmail = NormalizeEmail(user.Email)
	user.PasswordHash = hash
	user.SecurityStamp = uuid.NewString()

	if _, err := s.repomanager.Users(s.db).Create(ctx, user); err != nil {
		return err
	}
	return nil
}

func (s *PostgresStore) CheckPassword(_ context.Context, user *models.User, password string) bool {
	return checkPassword(s.hasher, s.decoy, user, password)
}

func (s *PostgresStore) RoleExists(ctx context.Context, role string) (bool, error) {
	_, err := s.repomanager.Roles(s.db).FindByName(ctx, role)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AddToRole resolves the role and records the assignment in one transaction.
func (s *PostgresStore) AddToRole(ctx context.Context, user *models.User, role string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r, err := s.repomanager.Roles(tx).FindByName(ctx, role)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorInvalidRole
			}
			return err
		}
		return s.repomanager.Roles(tx).AssignToUser(ctx, user.ID, r.ID)
	})
}

func (s *PostgresStore) GetRoles(ctx context.Context, user *models.User) ([]string, error) {
	return s.repomanager.Roles(s.db).ListNamesForUser(ctx, user.ID)
}

func (s *PostgresStore) GenerateEmailConfirmationToken(ctx context.Context, user *models.User) (string, error) {
	raw, err := common.MakeRandURLToken(common.ConfirmationTokenSize)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	token := &models.ConfirmationToken{
		UserID:    user.ID,
		Email:     NormalizeEmail(user.Email),
		TokenHash: HashToken(raw),
		ExpiresAt: s.now().Add(s.tokenValidity),
	}
	if err := s.repomanager.ConfirmationTokens(s.db).Create(ctx, token); err != nil {
		return "", err
	}
	return raw, nil
}

func (s *PostgresStore) ConfirmEmail(ctx context.Context, user *models.User, token string) error {
	if token == "" {
		return common.ErrorInvalidOrExpiredToken
	}

	stamp := uuid.NewString()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.ConfirmationTokens(tx).Consume(ctx, HashToken(token), user.ID, NormalizeEmail(user.Email), s.now())
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorInvalidOrExpiredToken
			}
			return err
		}
		return s.repomanager.Users(tx).MarkEmailConfirmed(ctx, user.ID, stamp)
	})
	if err != nil {
		return err
	}

	user.EmailConfirmed = true
	user.SecurityStamp = stamp
	return nil
}
