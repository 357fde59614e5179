package repository

import (
	"context"

	"rideshare/internal/domain"
	"rideshare/internal/search"
)

// Page bounds a listing. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride with its passengers and creator summary.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetAll retrieves rides most recent first. A zero Page returns every ride.
	GetAll(ctx context.Context, page Page) ([]*domain.Ride, error)

	// Search returns the rides matching f, ordered by f.Sort.
	Search(ctx context.Context, f search.Filter) ([]*domain.Ride, error)

	// Update writes the mutable fields of an existing ride.
	Update(ctx context.Context, ride *domain.Ride) error

	// Delete removes a ride and its passenger rows.
	Delete(ctx context.Context, id string) error

	// Join atomically reserves one seat for userID and returns the updated ride.
	// It fails with ErrRideFull, ErrAlreadyJoined, ErrRideNotJoinable or ErrRideNotFound
	// without modifying anything.
	Join(ctx context.Context, rideID, userID string) (*domain.Ride, error)
}
