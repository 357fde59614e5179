package tests

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/auth"
	"rideshare/internal/domain"
	"rideshare/internal/repository"
	"rideshare/internal/service"
)

func seedUser(repo *MockUserRepository, email string) *domain.User {
	user := &domain.User{
		ID:        uuid.NewString(),
		Name:      "Ravi",
		Email:     email,
		CreatedAt: time.Now(),
	}
	repo.AddUser(user)
	return user
}

// ──────────────────────────────────────────────
// 6. USER PROFILES
// ──────────────────────────────────────────────

func TestUserGet_IncludesRideReferences(t *testing.T) {
	t.Parallel()

	users := NewMockUserRepository()
	rides := NewMockRideRepository()
	users.Rides = rides
	svc := service.NewUserService(users, nil)

	creator := seedUser(users, "creator@example.com")
	passenger := seedUser(users, "passenger@example.com")
	ride := seedRide(rides, creator.ID, 2)
	if _, err := rides.Join(context.Background(), ride.ID, passenger.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	got, err := svc.Get(context.Background(), creator.ID)
	if err != nil {
		t.Fatalf("get creator: %v", err)
	}
	if len(got.RidesCreated) != 1 || got.RidesCreated[0] != ride.ID {
		t.Errorf("expected created [%s], got %v", ride.ID, got.RidesCreated)
	}

	got, err = svc.Get(context.Background(), passenger.ID)
	if err != nil {
		t.Fatalf("get passenger: %v", err)
	}
	if len(got.RidesJoined) != 1 || got.RidesJoined[0] != ride.ID {
		t.Errorf("expected joined [%s], got %v", ride.ID, got.RidesJoined)
	}
}

func TestUserUpdate_PartialFields(t *testing.T) {
	t.Parallel()

	users := NewMockUserRepository()
	svc := service.NewUserService(users, NewMockRideCache())
	user := seedUser(users, "ravi@example.com")

	bio := "  weekend driver  "
	age := 31
	got, err := svc.Update(context.Background(), user.ID, service.UpdateUserRequest{Bio: &bio, Age: &age})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Bio != "weekend driver" {
		t.Errorf("expected trimmed bio, got %q", got.Bio)
	}
	if got.Age == nil || *got.Age != 31 {
		t.Errorf("expected age 31, got %v", got.Age)
	}
	if got.Name != "Ravi" || got.Email != "ravi@example.com" {
		t.Error("expected untouched fields to be preserved")
	}
}

func TestUserUpdate_PasswordIsRehashed(t *testing.T) {
	t.Parallel()

	users := NewMockUserRepository()
	svc := service.NewUserService(users, nil)
	user := seedUser(users, "pw@example.com")

	password := "new-password"
	if _, err := svc.Update(context.Background(), user.ID, service.UpdateUserRequest{Password: &password}); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored := users.GetUser(user.ID)
	if err := auth.CheckPassword(stored.PasswordHash, password); err != nil {
		t.Errorf("expected new password to verify, got: %v", err)
	}
}

func TestUserUpdate_Validation(t *testing.T) {
	t.Parallel()

	users := NewMockUserRepository()
	svc := service.NewUserService(users, nil)
	user := seedUser(users, "v@example.com")
	seedUser(users, "taken@example.com")

	empty := "  "
	if _, err := svc.Update(context.Background(), user.ID, service.UpdateUserRequest{Name: &empty}); !errors.Is(err, service.ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got: %v", err)
	}
	badEmail := "nope"
	if _, err := svc.Update(context.Background(), user.ID, service.UpdateUserRequest{Email: &badEmail}); !errors.Is(err, service.ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail, got: %v", err)
	}
	taken := "Taken@example.com"
	if _, err := svc.Update(context.Background(), user.ID, service.UpdateUserRequest{Email: &taken}); !errors.Is(err, service.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got: %v", err)
	}
	short := "short"
	if _, err := svc.Update(context.Background(), user.ID, service.UpdateUserRequest{Password: &short}); !errors.Is(err, service.ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got: %v", err)
	}
	long := strings.Repeat("x", 100)
	if _, err := svc.Update(context.Background(), user.ID, service.UpdateUserRequest{Password: &long}); !errors.Is(err, service.ErrPasswordTooLong) {
		t.Errorf("expected ErrPasswordTooLong, got: %v", err)
	}
	age := 200
	if _, err := svc.Update(context.Background(), user.ID, service.UpdateUserRequest{Age: &age}); !errors.Is(err, service.ErrInvalidAge) {
		t.Errorf("expected ErrInvalidAge, got: %v", err)
	}
	if _, err := svc.Update(context.Background(), "bad-id", service.UpdateUserRequest{}); !errors.Is(err, service.ErrInvalidUserID) {
		t.Errorf("expected ErrInvalidUserID, got: %v", err)
	}
}

func TestUserDelete_ReleasesSeatsAndRemovesRides(t *testing.T) {
	t.Parallel()

	users := NewMockUserRepository()
	rides := NewMockRideRepository()
	users.Rides = rides
	cache := NewMockRideCache()
	svc := service.NewUserService(users, cache)

	driver := seedUser(users, "driver@example.com")
	rider := seedUser(users, "rider@example.com")
	theirRide := seedRide(rides, driver.ID, 2)
	ownRide := seedRide(rides, rider.ID, 2)
	if _, err := rides.Join(context.Background(), theirRide.ID, rider.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := svc.Delete(context.Background(), rider.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if users.GetUser(rider.ID) != nil {
		t.Error("expected user to be removed")
	}
	if rides.GetRide(ownRide.ID) != nil {
		t.Error("expected rides created by the user to be removed")
	}
	remaining := rides.GetRide(theirRide.ID)
	if remaining.AvailableSeats != 2 || remaining.HasPassenger(rider.ID) {
		t.Errorf("expected seat released, got %d seats, passengers %v", remaining.AvailableSeats, remaining.Passengers)
	}
	if cache.InvalidateCount != 1 {
		t.Errorf("expected one cache invalidation, got %d", cache.InvalidateCount)
	}

	if err := svc.Delete(context.Background(), rider.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got: %v", err)
	}
}
