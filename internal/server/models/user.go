// Package models defines server-side data models persisted in the database.
package models

import "time"

// Roles distinguish privileged uploaders from verified consumers.
const (
	RoleOps    = "ops"
	RoleClient = "client"
)

type User struct {
	ID                int64
	Username          string
	Email             string
	PasswordHash      string
	Role              string
	Verified          bool
	VerificationToken string
	CreatedAt         time.Time
}
