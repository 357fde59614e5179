package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrRideNotFound is returned when a ride does not exist. It matches ErrNotFound.
	ErrRideNotFound error = notFoundError{entity: "ride"}

	// ErrUserNotFound is returned when a user does not exist, including when a write
	// references a user that was deleted. It matches ErrNotFound.
	ErrUserNotFound error = notFoundError{entity: "user"}

	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("entity already exists")

	// ErrRideFull is returned when a ride has no seats left to join.
	ErrRideFull = errors.New("ride is full")

	// ErrAlreadyJoined is returned when the user already holds a seat on the ride.
	ErrAlreadyJoined = errors.New("you already joined this ride")

	// ErrRideNotJoinable is returned when the ride is canceled or completed.
	ErrRideNotJoinable = errors.New("ride is not open for joining")

	// ErrSeatsBelowPassengers is returned when a capacity update would strand passengers.
	ErrSeatsBelowPassengers = errors.New("seats cannot be fewer than current passengers")
)

// notFoundError names the missing entity for clients while still matching ErrNotFound.
type notFoundError struct {
	entity string
}

func (e notFoundError) Error() string {
	return e.entity + " not found"
}

func (e notFoundError) Is(target error) bool {
	return target == ErrNotFound
}
