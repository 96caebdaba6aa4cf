// Package users stores user accounts. Both implementations translate driver
// errors into the sentinels from internal/common: missing rows become
// common.ErrorNotFound and duplicate emails common.ErrorAlreadyExists.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Create inserts a new user. The email must be unique.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// UpdatePassword replaces the stored hash of an existing user, provided it
	// still equals oldHash. A hash that moved on yields common.ErrVersionConflict.
	UpdatePassword(ctx context.Context, id string, oldHash, newHash string) error
}
