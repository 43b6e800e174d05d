// Package common defines shared constants and sentinel errors used across
// usermanager. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal       = errors.New("internal error")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorInvalidRole    = errors.New("role does not exist")
	ErrorCreationFailed = errors.New("user creation failed")

	// Confirmation token presented with a wrong email, already used, or expired.
	ErrorInvalidOrExpiredToken = errors.New("invalid or expired token")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
