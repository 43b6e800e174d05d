package models

import "time"

// ConfirmationToken is the stored side of an email confirmation token. Only
// the SHA-256 of the raw token is kept; the raw value exists in the email.
type ConfirmationToken struct {
	ID        string
	UserID    string
	Email     string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
