package domain

import "time"

// User represents a registered member of the marketplace.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	IsAdmin        bool
	Age            *int
	ProfilePicture string
	Bio            string
	Stars          float64
	RidesCreated   []string
	RidesJoined    []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreatorSummary is the subset of a user's profile attached to rides they publish.
type CreatorSummary struct {
	ID                string
	Name              string
	ProfilePicture    string
	Stars             float64
	Age               *int
	RidesCreatedCount int
	MemberSince       time.Time
}
