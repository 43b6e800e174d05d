// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account known to the credential store.
type User struct {
	ID              string
	UserName        string
	Email           string
	NormalizedEmail string
	PasswordHash    string
	// SecurityStamp changes whenever credentials or verified state change.
	SecurityStamp  string
	EmailConfirmed bool
	CreatedAt      time.Time
}
