package domain

import "time"

type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Well-known role names.
const (
	RoleUser      = "USER"
	RoleAdmin     = "ADMIN"
	RoleAPIClient = "API_CLIENT"
)
