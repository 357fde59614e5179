package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"rideshare/internal/auth"
	"rideshare/internal/domain"
	"rideshare/internal/redis"
	"rideshare/internal/repository"
)

const maxAge = 150

// UserService handles profile reads and updates.
type UserService struct {
	userRepo  repository.UserRepository
	rideCache redis.RideCacheInterface
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, rideCache redis.RideCacheInterface) *UserService {
	return &UserService{userRepo: userRepo, rideCache: rideCache}
}

// UpdateUserRequest is a partial profile update. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name           *string
	Email          *string
	Password       *string
	Age            *int
	ProfilePicture *string
	Bio            *string
}

// Get returns a user with their created and joined ride IDs.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if err := validateUUID(id, ErrInvalidUserID); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, id)
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.GetAll(ctx)
}

// Update applies a partial profile update.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		user.Name = name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if req.Age != nil {
		if *req.Age < 0 || *req.Age > maxAge {
			return nil, ErrInvalidAge
		}
		user.Age = req.Age
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = strings.TrimSpace(*req.ProfilePicture)
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	// Creator summaries on cached rides embed the profile.
	s.invalidateRides(ctx, user.RidesCreated...)
	return user, nil
}

// Delete removes a user, releasing seats they held and deleting rides they created.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateRides(ctx, append(user.RidesCreated, user.RidesJoined...)...)
	return nil
}

func (s *UserService) invalidateRides(ctx context.Context, ids ...string) {
	if s.rideCache == nil || len(ids) == 0 {
		return
	}
	_ = s.rideCache.InvalidateRide(ctx, ids...)
}

func validateUUID(id string, errInvalid error) error {
	if _, err := uuid.Parse(id); err != nil {
		return errInvalid
	}
	return nil
}
