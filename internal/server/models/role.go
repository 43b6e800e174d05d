package models

// Role is a named label from a fixed administrative set. Roles are seeded
// by migrations and never created at runtime.
type Role struct {
	ID   string
	Name string
}

// Seeded role names.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
	RoleHR    = "HR"
)
