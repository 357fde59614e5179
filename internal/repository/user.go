package repository

import (
	"context"

	"rideshare/internal/domain"
)

// UserRepository defines the persistence operations for users.
type UserRepository interface {
	// Create adds a new user. Returns ErrDuplicate if the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID, including created and joined ride IDs.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetAll retrieves all users.
	GetAll(ctx context.Context) ([]*domain.User, error)

	// Update writes profile fields. Returns ErrDuplicate if the new email is taken.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user, frees the seats they held and deletes the rides they created.
	Delete(ctx context.Context, id string) error
}
