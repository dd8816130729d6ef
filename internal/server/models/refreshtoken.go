package models

import "time"

// RefreshToken is a stored refresh token row.
type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}
