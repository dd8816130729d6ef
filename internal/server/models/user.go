// Package models defines the server-side persistence models.
package models

import "time"

// User is an account row. PasswordHash is an encoded argon2id hash, never the
// raw password.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
