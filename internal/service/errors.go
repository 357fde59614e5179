package service

import "errors"

var (
	// ErrMissingRegistrationFields is returned when name, email or password is empty.
	ErrMissingRegistrationFields = errors.New("all fields are required")

	// ErrMissingCredentials is returned when login omits email or password.
	ErrMissingCredentials = errors.New("email and password are required")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrWeakPassword is returned when a password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrPasswordTooLong is returned when a password exceeds what bcrypt can hash.
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

	// ErrEmailExists is returned when registering or switching to a taken email.
	ErrEmailExists = errors.New("email already exists")

	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("wrong email or password")

	// ErrInvalidToken is returned when a token is malformed, expired or revoked.
	ErrInvalidToken = errors.New("token is not valid")

	// ErrForbidden is returned when the actor may not act on a resource.
	ErrForbidden = errors.New("you are not authorized")

	// ErrInvalidUserID is returned when a user ID is not a UUID.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidRideID is returned when a ride ID is not a UUID.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidPage is returned for a negative offset or a limit outside 0..100.
	ErrInvalidPage = errors.New("limit must be between 0 and 100 and offset must not be negative")

	// ErrInvalidAge is returned when an age is out of range.
	ErrInvalidAge = errors.New("age must be between 0 and 150")

	// ErrEmptyName is returned when an update blanks the name.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrMissingRideFields is returned when required ride fields are absent.
	ErrMissingRideFields = errors.New("all required fields must be provided: seats, origin, destination, start time, end time")

	// ErrInvalidPlace is returned when a place name is shorter than two characters.
	ErrInvalidPlace = errors.New("origin and destination must be at least 2 characters")

	// ErrInvalidCoordinates is returned when a longitude or latitude is out of range.
	ErrInvalidCoordinates = errors.New("coordinates must be [lng, lat] within valid ranges")

	// ErrStartInPast is returned when a ride would depart in the past.
	ErrStartInPast = errors.New("start time cannot be in the past")

	// ErrEndBeforeStart is returned when a ride ends at or before its start.
	ErrEndBeforeStart = errors.New("end time must be after start time")

	// ErrInvalidSeats is returned when capacity is outside 1..10.
	ErrInvalidSeats = errors.New("available seats must be between 1 and 10")

	// ErrNegativePrice is returned when a price is below zero.
	ErrNegativePrice = errors.New("price cannot be negative")

	// ErrInvalidStatus is returned for an unknown ride status.
	ErrInvalidStatus = errors.New("status must be one of pending, active, completed, canceled")

	// ErrCannotJoinOwnRide is returned when a creator tries to join their own ride.
	ErrCannotJoinOwnRide = errors.New("you cannot join your own ride")
)
