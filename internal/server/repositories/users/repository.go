// Package users provides the PostgreSQL-backed account repository.
package users

import (
	"context"

	"github.com/mihailsb/docsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
