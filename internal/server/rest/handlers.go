package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/server/services"
)

// User-visible messages.
const (
	msgUserExists      = "User Already exists!"
	msgRoleMissing     = "Role does not exist!"
	msgCreationFailed  = "User failed to create!"
	msgUserCreated     = "User created successfully and Email sent to %s for confirmation"
	msgEmailVerified   = "Email Verified successfully!"
	msgConfirmFailed   = "This User does not exist!"
	msgInternal        = "Internal server error"
	msgMalformedBody   = "Request body is not valid JSON"
	msgMissingFields   = "Username, email and password are required"
	msgMissingRole     = "Role is required"
	msgMissingPassword = "Password is required"
)

// AuthService is the business logic behind the authentication routes.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	ConfirmEmail(ctx context.Context, token, email string) error
}

const maxBodyBytes = 1 << 16

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeResponse(w, http.StatusBadRequest, StatusError, msgMalformedBody)
		return
	}
	if req.Username == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeResponse(w, http.StatusBadRequest, StatusError, msgMissingFields)
		return
	}
	role := r.URL.Query().Get("role")
	if role == "" {
		writeResponse(w, http.StatusBadRequest, StatusError, msgMissingRole)
		return
	}

	res, err := s.auth.Register(r.Context(), services.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		Role:            role,
		ConfirmationURL: s.confirmationURL(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			s.metrics.authEvent("register", "already_exists")
			writeResponse(w, http.StatusForbidden, StatusError, msgUserExists)
		case errors.Is(err, common.ErrorInvalidRole):
			s.metrics.authEvent("register", "invalid_role")
			writeResponse(w, http.StatusInternalServerError, StatusError, msgRoleMissing)
		case errors.Is(err, common.ErrorCreationFailed):
			s.metrics.authEvent("register", "creation_failed")
			writeResponse(w, http.StatusInternalServerError, StatusError, msgCreationFailed)
		default:
			s.metrics.authEvent("register", "error")
			writeResponse(w, http.StatusInternalServerError, StatusError, msgInternal)
		}
		return
	}

	s.metrics.authEvent("register", "success")
	writeResponse(w, http.StatusCreated, StatusSuccess, fmt.Sprintf(msgUserCreated, res.Email))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeResponse(w, http.StatusBadRequest, StatusError, msgMalformedBody)
		return
	}
	if req.Password == "" {
		writeResponse(w, http.StatusBadRequest, StatusError, msgMissingPassword)
		return
	}

	res, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.metrics.authEvent("login", "unauthorized")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.metrics.authEvent("login", "error")
		writeResponse(w, http.StatusInternalServerError, StatusError, msgInternal)
		return
	}

	s.metrics.authEvent("login", "success")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:      res.Token,
		Expiration: res.Expiration.UTC().Format(time.RFC3339),
		ID:         res.UserID,
		Email:      res.Email,
	})
}

// handleConfirmEmail answers every failure with the same message.
func (s *Server) handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if err := s.auth.ConfirmEmail(r.Context(), q.Get("token"), q.Get("email")); err != nil {
		s.metrics.authEvent("confirm_email", "failed")
		writeResponse(w, http.StatusInternalServerError, StatusError, msgConfirmFailed)
		return
	}

	s.metrics.authEvent("confirm_email", "success")
	writeResponse(w, http.StatusOK, StatusSuccess, msgEmailVerified)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	roles := p.Roles
	if roles == nil {
		roles = []string{}
	}
	writeJSON(w, http.StatusOK, meResponse{
		Username:   p.Username,
		Roles:      roles,
		Expiration: p.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeResponse(w, http.StatusOK, StatusSuccess, "ok")
}

// confirmationURL is the absolute address of the ConfirmEmail route, based on
// the configured public URL or, failing that, on the incoming request.
func (s *Server) confirmationURL(r *http.Request) string {
	base := s.publicBaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
			scheme = p
		}
		base = scheme + "://" + r.Host
	}
	return strings.TrimRight(base, "/") + confirmEmailPath
}
