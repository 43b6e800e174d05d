// Package services contains server-side business logic. This file implements
// AuthenticationService: registration with email confirmation, login, and
// session token issuance.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/logging"
	"github.com/dmitrijs2005/usermanager/internal/server/auth"
	"github.com/dmitrijs2005/usermanager/internal/server/identity"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/dmitrijs2005/usermanager/internal/server/notify"
	"github.com/google/uuid"
)

// ConfirmationSubject is the subject line of the confirmation email.
const ConfirmationSubject = "Confirmation email link"

// TokenIssuer produces signed session tokens.
type TokenIssuer interface {
	Issue(claims []auth.Claim) (*auth.SessionToken, error)
}

// Notifier hands a message off for asynchronous delivery.
type Notifier interface {
	Dispatch(ctx context.Context, msg notify.Message)
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string

	// ConfirmationURL is the absolute address of the confirmation endpoint;
	// token and email are appended as query parameters.
	ConfirmationURL string
}

type RegisterResult struct {
	UserID string
	Email  string
}

type LoginResult struct {
	Token      string
	Expiration time.Time
	UserID     string
	Email      string
}

type AuthenticationService struct {
	store      identity.Store
	issuer     TokenIssuer
	notifier   Notifier
	logger     logging.Logger
	newTokenID func() string
}

func NewAuthenticationService(store identity.Store, issuer TokenIssuer, notifier Notifier, l logging.Logger) *AuthenticationService {
	return &AuthenticationService{
		store:      store,
		issuer:     issuer,
		notifier:   notifier,
		logger:     l.With("module", "authentication"),
		newTokenID: uuid.NewString,
	}
}

// Register creates an account in the requested role and sends a confirmation
// link to its email. Delivery problems never fail the registration.
func (s *AuthenticationService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	_, err := s.store.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, common.ErrorAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "lookup by email failed", "error", err)
		return nil, common.ErrorInternal
	}

	exists, err := s.store.RoleExists(ctx, in.Role)
	if err != nil {
		s.logger.Error(ctx, "role lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if !exists {
		return nil, common.ErrorInvalidRole
	}

	base, err := parseConfirmationURL(in.ConfirmationURL)
	if err != nil {
		s.logger.Error(ctx, "bad confirmation url", "error", err)
		return nil, common.ErrorInternal
	}

	user := &models.User{UserName: in.Username, Email: in.Email}
	if err := s.store.Create(ctx, user, in.Password); err != nil {
		// a concurrent registration won the uniqueness race
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		s.logger.Warn(ctx, "user creation failed", "error", err)
		return nil, common.ErrorCreationFailed
	}

	if err := s.store.AddToRole(ctx, user, in.Role); err != nil {
		s.logger.Error(ctx, "role assignment failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorCreationFailed
	}

	token, err := s.store.GenerateEmailConfirmationToken(ctx, user)
	if err != nil {
		s.logger.Error(ctx, "confirmation token generation failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	s.notifier.Dispatch(ctx, notify.Message{
		To:      []string{user.Email},
		Subject: ConfirmationSubject,
		Body:    confirmationLink(base, token, user.Email),
	})

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "role", in.Role)

	return &RegisterResult{UserID: user.ID, Email: user.Email}, nil
}

// Login checks credentials and issues a session token carrying the
// username, a fresh token id and every assigned role. Unknown email and
// wrong password are indistinguishable, including in the time they take.
func (s *AuthenticationService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.store.CheckPassword(ctx, nil, password)
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "lookup by email failed", "error", err)
		return nil, common.ErrorInternal
	}

	if !s.store.CheckPassword(ctx, user, password) {
		return nil, common.ErrorUnauthorized
	}

	roles, err := s.store.GetRoles(ctx, user)
	if err != nil {
		s.logger.Error(ctx, "role listing failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	claims := make([]auth.Claim, 0, len(roles)+2)
	claims = append(claims,
		auth.Claim{Type: auth.ClaimName, Value: user.UserName},
		auth.Claim{Type: auth.ClaimTokenID, Value: s.newTokenID()},
	)
	for _, r := range roles {
		claims = append(claims, auth.Claim{Type: auth.ClaimRole, Value: r})
	}

	st, err := s.issuer.Issue(claims)
	if err != nil {
		s.logger.Error(ctx, "token issuance failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	return &LoginResult{
		Token:      st.Token,
		Expiration: st.ExpiresAt,
		UserID:     user.ID,
		Email:      user.Email,
	}, nil
}

// ConfirmEmail consumes a confirmation token for the account with email.
// It returns common.ErrorNotFound or common.ErrorInvalidOrExpiredToken on
// failure; callers should present both the same way.
func (s *AuthenticationService) ConfirmEmail(ctx context.Context, token, email string) error {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "lookup by email failed", "error", err)
		return common.ErrorInternal
	}

	if err := s.store.ConfirmEmail(ctx, user, token); err != nil {
		if !errors.Is(err, common.ErrorInvalidOrExpiredToken) {
			s.logger.Error(ctx, "email confirmation failed", "user_id", user.ID, "error", err)
		}
		return common.ErrorInvalidOrExpiredToken
	}

	s.logger.Info(ctx, "email confirmed", "user_id", user.ID)
	return nil
}

// parseConfirmationURL accepts only absolute http(s) addresses.
func parseConfirmationURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("confirmation url %q is not an absolute http(s) url", raw)
	}
	return u, nil
}

func confirmationLink(base *url.URL, token, email string) string {
	u := *base
	q := u.Query()
	q.Set("token", token)
	q.Set("email", email)
	u.RawQuery = q.Encode()

	return u.String()
}
