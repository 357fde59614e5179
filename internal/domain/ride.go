package domain

import (
	"slices"
	"time"
)

// RideStatus represents the lifecycle status of a published ride.
type RideStatus string

const (
	RideStatusPending   RideStatus = "pending"
	RideStatusActive    RideStatus = "active"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCanceled  RideStatus = "canceled"
)

// Valid reports whether s is one of the known statuses.
func (s RideStatus) Valid() bool {
	switch s {
	case RideStatusPending, RideStatusActive, RideStatusCompleted, RideStatusCanceled:
		return true
	}
	return false
}

// Joinable reports whether passengers may still join a ride in this status.
func (s RideStatus) Joinable() bool {
	return s == RideStatusPending || s == RideStatusActive
}

const (
	MinSeats = 1
	MaxSeats = 10
)

// Coordinates is a longitude/latitude pair.
type Coordinates struct {
	Lng float64
	Lat float64
}

// Place is a named location with optional coordinates.
type Place struct {
	Name        string
	Coordinates *Coordinates
}

// Vehicle describes the car used for a ride.
type Vehicle struct {
	Number string
	Model  string
}

// Ride represents a trip published by a user that others can join.
type Ride struct {
	ID             string
	CreatorID      string
	Origin         Place
	Destination    Place
	StartTime      time.Time
	EndTime        time.Time
	Seats          int // capacity
	AvailableSeats int
	Price          float64
	Status         RideStatus
	Passengers     []string
	Vehicle        Vehicle
	Creator        *CreatorSummary // populated on reads
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Duration is the planned trip duration.
func (r *Ride) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// HasPassenger reports whether userID already holds a seat.
func (r *Ride) HasPassenger(userID string) bool {
	return slices.Contains(r.Passengers, userID)
}
