package service

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/domain"
	"rideshare/internal/redis"
	"rideshare/internal/repository"
	"rideshare/internal/search"
)

const minPlaceLength = 2

// Actor identifies who performs a mutation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// RideService handles ride publishing, search and joining.
type RideService struct {
	rideRepo            repository.RideRepository
	cache               redis.RideCacheInterface
	publisher           EventPublisher
	notificationService *NotificationService
	location            *time.Location
	now                 func() time.Time
}

// NewRideService creates a new RideService. Search dates are resolved in loc.
func NewRideService(
	rideRepo repository.RideRepository,
	cache redis.RideCacheInterface,
	publisher EventPublisher,
	notificationService *NotificationService,
	loc *time.Location,
) *RideService {
	if loc == nil {
		loc = time.UTC
	}
	return &RideService{
		rideRepo:            rideRepo,
		cache:               cache,
		publisher:           publisher,
		notificationService: notificationService,
		location:            loc,
		now:                 time.Now,
	}
}

// CreateRideRequest contains the parameters for publishing a ride.
type CreateRideRequest struct {
	Origin      domain.Place
	Destination domain.Place
	StartTime   time.Time
	EndTime     time.Time
	Seats       int
	Price       float64
	Vehicle     domain.Vehicle
}

// UpdateRideRequest is a partial ride update. Nil fields are left unchanged.
type UpdateRideRequest struct {
	Origin      *domain.Place
	Destination *domain.Place
	StartTime   *time.Time
	EndTime     *time.Time
	Seats       *int
	Price       *float64
	Status      *domain.RideStatus
	Vehicle     *domain.Vehicle
}

// Create validates and publishes a new ride owned by creatorID.
func (s *RideService) Create(ctx context.Context, creatorID string, req CreateRideRequest) (*domain.Ride, error) {
	if err := validateUUID(creatorID, ErrInvalidUserID); err != nil {
		return nil, err
	}
	if req.Seats == 0 || strings.TrimSpace(req.Origin.Name) == "" || strings.TrimSpace(req.Destination.Name) == "" ||
		req.StartTime.IsZero() || req.EndTime.IsZero() {
		return nil, ErrMissingRideFields
	}

	now := s.now()
	ride := &domain.Ride{
		ID:          uuid.New().String(),
		CreatorID:   creatorID,
		Origin:      normalizePlace(req.Origin),
		Destination: normalizePlace(req.Destination),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Seats:       req.Seats,
		Price:       req.Price,
		Status:      domain.RideStatusPending,
		Passengers:  []string{},
		Vehicle:     normalizeVehicle(req.Vehicle),
		CreatedAt:   now,
	}
	if !ride.StartTime.After(now) {
		return nil, ErrStartInPast
	}
	if err := validateRide(ride); err != nil {
		return nil, err
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, SubjectRideCreated, newRideEvent(ride, creatorID, now))
	return ride, nil
}

// Get returns a ride with passengers and creator summary, served from cache when possible.
func (s *RideService) Get(ctx context.Context, id string) (*domain.Ride, error) {
	if err := validateUUID(id, ErrInvalidRideID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetRide(ctx, id)
		if err != nil {
			log.Printf("ride cache get %s: %v", id, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	ride, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRide(ctx, ride); err != nil {
			log.Printf("ride cache set %s: %v", id, err)
		}
	}
	return ride, nil
}

// maxPageLimit caps a single page of GET /api/rides.
const maxPageLimit = 100

// List returns rides most recent first. A zero page lists every ride.
func (s *RideService) List(ctx context.Context, page repository.Page) ([]*domain.Ride, error) {
	if page.Limit < 0 || page.Limit > maxPageLimit || page.Offset < 0 {
		return nil, ErrInvalidPage
	}
	return s.rideRepo.GetAll(ctx, page)
}

// Search validates params and returns matching rides in the requested order.
func (s *RideService) Search(ctx context.Context, params search.Params) ([]*domain.Ride, error) {
	filter, err := search.Build(params, s.location)
	if err != nil {
		return nil, err
	}
	return s.rideRepo.Search(ctx, filter)
}

// Update applies a partial update. Only the creator or an admin may update a ride.
func (s *RideService) Update(ctx context.Context, id string, actor Actor, req UpdateRideRequest) (*domain.Ride, error) {
	ride, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	previousStart, previousStatus := ride.StartTime, ride.Status

	if req.Origin != nil {
		ride.Origin = normalizePlace(*req.Origin)
	}
	if req.Destination != nil {
		ride.Destination = normalizePlace(*req.Destination)
	}
	if req.StartTime != nil {
		ride.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		ride.EndTime = *req.EndTime
	}
	if req.Seats != nil {
		ride.Seats = *req.Seats
	}
	if req.Price != nil {
		ride.Price = *req.Price
	}
	if req.Status != nil {
		ride.Status = *req.Status
	}
	if req.Vehicle != nil {
		ride.Vehicle = normalizeVehicle(*req.Vehicle)
	}

	// A ride already under way keeps its start; a moved start must be in the future.
	if !ride.StartTime.Equal(previousStart) && !ride.StartTime.After(s.now()) {
		return nil, ErrStartInPast
	}
	if err := validateRide(ride); err != nil {
		return nil, err
	}

	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ride.ID)

	publish(ctx, s.publisher, SubjectRideUpdated, newRideEvent(ride, actor.UserID, s.now()))
	if s.notificationService != nil {
		var err error
		if ride.Status == domain.RideStatusCanceled && previousStatus != domain.RideStatusCanceled {
			err = s.notificationService.NotifyRideCanceled(ctx, ride)
		} else {
			err = s.notificationService.NotifyRideUpdated(ctx, ride)
		}
		if err != nil {
			log.Printf("failed to notify passengers of ride %s: %v", ride.ID, err)
		}
	}
	return ride, nil
}

// Delete removes a ride. Only the creator or an admin may delete a ride.
func (s *RideService) Delete(ctx context.Context, id string, actor Actor) error {
	ride, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return err
	}

	if err := s.rideRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	publish(ctx, s.publisher, SubjectRideDeleted, newRideEvent(ride, actor.UserID, s.now()))
	if s.notificationService != nil && ride.Status.Joinable() {
		if err := s.notificationService.NotifyRideCanceled(ctx, ride); err != nil {
			log.Printf("failed to notify passengers of ride %s: %v", ride.ID, err)
		}
	}
	return nil
}

// Join reserves one seat on the ride for userID.
func (s *RideService) Join(ctx context.Context, id, userID string) (*domain.Ride, error) {
	if err := validateUUID(id, ErrInvalidRideID); err != nil {
		return nil, err
	}
	if err := validateUUID(userID, ErrInvalidUserID); err != nil {
		return nil, err
	}

	current, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.CreatorID == userID {
		return nil, ErrCannotJoinOwnRide
	}

	ride, err := s.rideRepo.Join(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	publish(ctx, s.publisher, SubjectRideJoined, newRideEvent(ride, userID, s.now()))
	if s.notificationService != nil {
		if err := s.notificationService.NotifyPassengerJoined(ctx, ride, userID); err != nil {
			log.Printf("failed to notify creator of ride %s: %v", ride.ID, err)
		}
	}
	return ride, nil
}

// loadOwned reads the ride from the store, bypassing cache, and checks the actor may modify it.
func (s *RideService) loadOwned(ctx context.Context, id string, actor Actor) (*domain.Ride, error) {
	if err := validateUUID(id, ErrInvalidRideID); err != nil {
		return nil, err
	}
	ride, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ride.CreatorID != actor.UserID && !actor.IsAdmin {
		return nil, ErrForbidden
	}
	return ride, nil
}

func (s *RideService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRide(ctx, id); err != nil {
		log.Printf("ride cache invalidate %s: %v", id, err)
	}
}

// validateRide checks the field rules shared by create and update.
func validateRide(ride *domain.Ride) error {
	if len([]rune(ride.Origin.Name)) < minPlaceLength || len([]rune(ride.Destination.Name)) < minPlaceLength {
		return ErrInvalidPlace
	}
	if !validCoordinates(ride.Origin.Coordinates) || !validCoordinates(ride.Destination.Coordinates) {
		return ErrInvalidCoordinates
	}
	if ride.StartTime.IsZero() || ride.EndTime.IsZero() {
		return ErrMissingRideFields
	}
	if !ride.EndTime.After(ride.StartTime) {
		return ErrEndBeforeStart
	}
	if ride.Seats < domain.MinSeats || ride.Seats > domain.MaxSeats {
		return ErrInvalidSeats
	}
	if ride.Price < 0 || math.IsNaN(ride.Price) || math.IsInf(ride.Price, 0) {
		return ErrNegativePrice
	}
	if !ride.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func validCoordinates(c *domain.Coordinates) bool {
	if c == nil {
		return true
	}
	return c.Lng >= -180 && c.Lng <= 180 && c.Lat >= -90 && c.Lat <= 90
}

func normalizePlace(p domain.Place) domain.Place {
	p.Name = strings.TrimSpace(p.Name)
	return p
}

func normalizeVehicle(v domain.Vehicle) domain.Vehicle {
	v.Number = strings.TrimSpace(v.Number)
	v.Model = strings.TrimSpace(v.Model)
	return v
}
