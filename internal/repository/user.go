package repository

import (
	"context"

	"github.com/gargis23/QuizApp-sub000/internal/domain"
)

// UserRepository defines storage and retrieval of user accounts.
type UserRepository interface {
	// FindByID looks up a user by primary key. Returns
	// ErrUserNotFound when absent.
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// FindByUsername looks up a user by username. Returns
	// ErrUserNotFound when absent.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// Save persists the user. Unique-constraint violations map to
	// ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}
