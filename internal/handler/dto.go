package handler

import (
	"time"

	"rideshare/internal/domain"
)

// UserResponse is the public view of a user. The password hash never leaves the service.
type UserResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Age            *int      `json:"age,omitempty"`
	ProfilePicture string    `json:"profilePicture"`
	Bio            string    `json:"bio"`
	Stars          float64   `json:"stars"`
	RidesCreated   []string  `json:"ridesCreated"`
	RidesJoined    []string  `json:"ridesJoined"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// AdminUserResponse adds the admin flag for the admin listing.
type AdminUserResponse struct {
	UserResponse
	IsAdmin bool `json:"isAdmin"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Age:            u.Age,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
		Stars:          u.Stars,
		RidesCreated:   nonNil(u.RidesCreated),
		RidesJoined:    nonNil(u.RidesJoined),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// PlaceDTO is a named place. Coordinates are [lng, lat].
type PlaceDTO struct {
	Place       string    `json:"place"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

func toPlaceDTO(p domain.Place) PlaceDTO {
	dto := PlaceDTO{Place: p.Name}
	if p.Coordinates != nil {
		dto.Coordinates = []float64{p.Coordinates.Lng, p.Coordinates.Lat}
	}
	return dto
}

// toPlace converts a wire place. ok is false when coordinates are not a [lng, lat] pair.
func (p PlaceDTO) toPlace() (domain.Place, bool) {
	place := domain.Place{Name: p.Place}
	switch len(p.Coordinates) {
	case 0:
	case 2:
		place.Coordinates = &domain.Coordinates{Lng: p.Coordinates[0], Lat: p.Coordinates[1]}
	default:
		return place, false
	}
	return place, true
}

// VehicleDTO describes the car.
type VehicleDTO struct {
	Number string `json:"vehicleNumber"`
	Model  string `json:"model"`
}

// CreatorResponse is the creator summary attached to rides.
type CreatorResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	ProfilePicture    string    `json:"profilePicture"`
	Stars             float64   `json:"stars"`
	Age               *int      `json:"age,omitempty"`
	RidesCreatedCount int       `json:"ridesCreatedCount"`
	MemberSince       time.Time `json:"createdAt"`
}

// RideResponse is the public view of a ride.
type RideResponse struct {
	ID             string           `json:"id"`
	CreatorID      string           `json:"creatorId"`
	Creator        *CreatorResponse `json:"creator,omitempty"`
	Origin         PlaceDTO         `json:"origin"`
	Destination    PlaceDTO         `json:"destination"`
	StartTime      time.Time        `json:"startTime"`
	EndTime        time.Time        `json:"endTime"`
	Seats          int              `json:"seats"`
	AvailableSeats int              `json:"availableSeats"`
	Price          float64          `json:"price"`
	Status         string           `json:"status"`
	Passengers     []string         `json:"passengers"`
	Vehicle        VehicleDTO       `json:"vehicleDetails"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:             r.ID,
		CreatorID:      r.CreatorID,
		Origin:         toPlaceDTO(r.Origin),
		Destination:    toPlaceDTO(r.Destination),
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		Seats:          r.Seats,
		AvailableSeats: r.AvailableSeats,
		Price:          r.Price,
		Status:         string(r.Status),
		Passengers:     nonNil(r.Passengers),
		Vehicle:        VehicleDTO{Number: r.Vehicle.Number, Model: r.Vehicle.Model},
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if c := r.Creator; c != nil {
		resp.Creator = &CreatorResponse{
			ID:                c.ID,
			Name:              c.Name,
			ProfilePicture:    c.ProfilePicture,
			Stars:             c.Stars,
			Age:               c.Age,
			RidesCreatedCount: c.RidesCreatedCount,
			MemberSince:       c.MemberSince,
		}
	}
	return resp
}

func toRideResponses(rides []*domain.Ride) []RideResponse {
	out := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResponse(r))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
