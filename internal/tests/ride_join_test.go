package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
	"rideshare/internal/service"
)

// ──────────────────────────────────────────────
// 3. JOINING
// ──────────────────────────────────────────────

func TestJoin_DecrementsSeatsUntilFull(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f.repo, uuid.NewString(), 2)

	first, second, third := uuid.NewString(), uuid.NewString(), uuid.NewString()

	got, err := f.service.Join(context.Background(), ride.ID, first)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if got.AvailableSeats != 1 {
		t.Errorf("expected 1 seat left, got %d", got.AvailableSeats)
	}

	got, err = f.service.Join(context.Background(), ride.ID, second)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if got.AvailableSeats != 0 {
		t.Errorf("expected 0 seats left, got %d", got.AvailableSeats)
	}

	_, err = f.service.Join(context.Background(), ride.ID, third)
	if !errors.Is(err, repository.ErrRideFull) {
		t.Fatalf("expected ErrRideFull, got: %v", err)
	}
	if err.Error() != "ride is full" {
		t.Errorf("unexpected message %q", err.Error())
	}

	stored := f.repo.GetRide(ride.ID)
	if len(stored.Passengers) != 2 || stored.AvailableSeats != 0 {
		t.Errorf("expected 2 passengers and 0 seats, got %v / %d", stored.Passengers, stored.AvailableSeats)
	}
}

func TestJoin_TwiceBySameUser_Rejected(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f.repo, uuid.NewString(), 3)
	userID := uuid.NewString()

	if _, err := f.service.Join(context.Background(), ride.ID, userID); err != nil {
		t.Fatalf("first join: %v", err)
	}
	_, err := f.service.Join(context.Background(), ride.ID, userID)
	if !errors.Is(err, repository.ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got: %v", err)
	}
	if seats := f.repo.GetRide(ride.ID).AvailableSeats; seats != 2 {
		t.Errorf("expected seats unchanged at 2, got %d", seats)
	}
}

func TestJoin_AlreadyJoinedReportedBeforeFull(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f.repo, uuid.NewString(), 1)
	userID := uuid.NewString()

	if _, err := f.service.Join(context.Background(), ride.ID, userID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.service.Join(context.Background(), ride.ID, userID); !errors.Is(err, repository.ErrAlreadyJoined) {
		t.Errorf("expected ErrAlreadyJoined on a full ride, got: %v", err)
	}
}

func TestJoin_OwnRide_Rejected(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	creatorID := uuid.NewString()
	ride := seedRide(f.repo, creatorID, 3)

	_, err := f.service.Join(context.Background(), ride.ID, creatorID)
	if !errors.Is(err, service.ErrCannotJoinOwnRide) {
		t.Fatalf("expected ErrCannotJoinOwnRide, got: %v", err)
	}
	if f.repo.JoinCallCount != 0 {
		t.Error("expected repository join not to be called")
	}
}

func TestJoin_ClosedRide_Rejected(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.RideStatus{domain.RideStatusCanceled, domain.RideStatusCompleted} {
		f := newRideFixture()
		ride := seedRide(f.repo, uuid.NewString(), 3)
		f.repo.GetRide(ride.ID).Status = status

		_, err := f.service.Join(context.Background(), ride.ID, uuid.NewString())
		if !errors.Is(err, repository.ErrRideNotJoinable) {
			t.Errorf("status %s: expected ErrRideNotJoinable, got: %v", status, err)
		}
	}
}

func TestJoin_ActiveRide_Allowed(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f.repo, uuid.NewString(), 3)
	f.repo.GetRide(ride.ID).Status = domain.RideStatusActive

	if _, err := f.service.Join(context.Background(), ride.ID, uuid.NewString()); err != nil {
		t.Errorf("expected join on active ride to succeed, got: %v", err)
	}
}

func TestJoin_UnknownRideAndBadIDs(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	if _, err := f.service.Join(context.Background(), uuid.NewString(), uuid.NewString()); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if _, err := f.service.Join(context.Background(), "ride", uuid.NewString()); !errors.Is(err, service.ErrInvalidRideID) {
		t.Errorf("expected ErrInvalidRideID, got: %v", err)
	}
	if _, err := f.service.Join(context.Background(), uuid.NewString(), "user"); !errors.Is(err, service.ErrInvalidUserID) {
		t.Errorf("expected ErrInvalidUserID, got: %v", err)
	}
}

func TestJoin_InvalidatesCacheAndNotifies(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	creatorID := uuid.NewString()
	ride := seedRide(f.repo, creatorID, 1)

	if _, err := f.service.Get(context.Background(), ride.ID); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if !f.cache.Cached(ride.ID) {
		t.Fatal("expected ride to be cached")
	}

	if _, err := f.service.Join(context.Background(), ride.ID, uuid.NewString()); err != nil {
		t.Fatalf("join: %v", err)
	}
	if f.cache.Cached(ride.ID) {
		t.Error("expected cache entry to be invalidated")
	}

	got, err := f.service.Get(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AvailableSeats != 0 {
		t.Errorf("expected fresh read with 0 seats, got %d", got.AvailableSeats)
	}

	want := []string{
		service.SubjectRideJoined,
		"notifications." + creatorID, // PASSENGER_JOINED
		"notifications." + creatorID, // RIDE_FULL
	}
	subjects := f.publisher.Subjects()
	if len(subjects) != len(want) {
		t.Fatalf("expected subjects %v, got %v", want, subjects)
	}
	for i := range want {
		if subjects[i] != want[i] {
			t.Errorf("subject %d: expected %s, got %s", i, want[i], subjects[i])
		}
	}

	full, ok := f.publisher.Events()[2].Payload.(service.Notification)
	if !ok || full.Type != service.NotificationRideFull {
		t.Errorf("expected RIDE_FULL notification, got %+v", f.publisher.Events()[2].Payload)
	}
}

func TestJoin_ConcurrentRequests_NeverOverbook(t *testing.T) {
	t.Parallel()

	const (
		seats   = 3
		joiners = 25
	)

	f := newRideFixture()
	ride := seedRide(f.repo, uuid.NewString(), seats)

	var (
		wg        sync.WaitGroup
		successes int32
		full      int32
	)
	start := make(chan struct{})
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.service.Join(context.Background(), ride.ID, uuid.NewString())
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, repository.ErrRideFull):
				atomic.AddInt32(&full, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != seats {
		t.Errorf("expected exactly %d successful joins, got %d", seats, successes)
	}
	if full != joiners-seats {
		t.Errorf("expected %d full rejections, got %d", joiners-seats, full)
	}

	stored := f.repo.GetRide(ride.ID)
	if stored.AvailableSeats != 0 {
		t.Errorf("expected 0 seats left, got %d", stored.AvailableSeats)
	}
	if len(stored.Passengers) != seats {
		t.Errorf("expected %d passengers, got %d", seats, len(stored.Passengers))
	}
	if stored.AvailableSeats+len(stored.Passengers) != stored.Seats {
		t.Error("seat accounting drifted")
	}
}

func TestJoin_ConcurrentSameUser_JoinsOnce(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f.repo, uuid.NewString(), 5)
	userID := uuid.NewString()

	var (
		wg        sync.WaitGroup
		successes int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Join(context.Background(), ride.ID, userID); err == nil {
				atomic.AddInt32(&successes, 1)
			} else if !errors.Is(err, repository.ErrAlreadyJoined) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected a single successful join, got %d", successes)
	}
	if seats := f.repo.GetRide(ride.ID).AvailableSeats; seats != 4 {
		t.Errorf("expected 4 seats left, got %d", seats)
	}
}

// ──────────────────────────────────────────────
// 4. UPDATE AND DELETE
// ──────────────────────────────────────────────

func TestRideUpdate_OnlyCreatorOrAdmin(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	creatorID := uuid.NewString()
	ride := seedRide(f.repo, creatorID, 3)
	price := 99.0

	_, err := f.service.Update(context.Background(), ride.ID, service.Actor{UserID: uuid.NewString()}, service.UpdateRideRequest{Price: &price})
	if !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden for stranger, got: %v", err)
	}

	got, err := f.service.Update(context.Background(), ride.ID, service.Actor{UserID: creatorID}, service.UpdateRideRequest{Price: &price})
	if err != nil {
		t.Fatalf("creator update: %v", err)
	}
	if got.Price != price {
		t.Errorf("expected price %v, got %v", price, got.Price)
	}

	admin := service.Actor{UserID: uuid.NewString(), IsAdmin: true}
	price = 120
	if _, err := f.service.Update(context.Background(), ride.ID, admin, service.UpdateRideRequest{Price: &price}); err != nil {
		t.Errorf("admin update: %v", err)
	}
}

func TestRideUpdate_SeatsRecomputeAvailability(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	creatorID := uuid.NewString()
	ride := seedRide(f.repo, creatorID, 3)
	owner := service.Actor{UserID: creatorID}

	for i := 0; i < 2; i++ {
		if _, err := f.service.Join(context.Background(), ride.ID, uuid.NewString()); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}

	seats := 5
	got, err := f.service.Update(context.Background(), ride.ID, owner, service.UpdateRideRequest{Seats: &seats})
	if err != nil {
		t.Fatalf("grow: %v", err)
	}
	if got.AvailableSeats != 3 {
		t.Errorf("expected 3 available after growing to 5 with 2 passengers, got %d", got.AvailableSeats)
	}

	seats = 1
	_, err = f.service.Update(context.Background(), ride.ID, owner, service.UpdateRideRequest{Seats: &seats})
	if !errors.Is(err, repository.ErrSeatsBelowPassengers) {
		t.Errorf("expected ErrSeatsBelowPassengers, got: %v", err)
	}

	seats = 11
	_, err = f.service.Update(context.Background(), ride.ID, owner, service.UpdateRideRequest{Seats: &seats})
	if !errors.Is(err, service.ErrInvalidSeats) {
		t.Errorf("expected ErrInvalidSeats, got: %v", err)
	}
}

func TestRideUpdate_Validation(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	creatorID := uuid.NewString()
	ride := seedRide(f.repo, creatorID, 3)
	owner := service.Actor{UserID: creatorID}

	past := time.Now().Add(-time.Hour)
	if _, err := f.service.Update(context.Background(), ride.ID, owner, service.UpdateRideRequest{StartTime: &past}); !errors.Is(err, service.ErrStartInPast) {
		t.Errorf("expected ErrStartInPast, got: %v", err)
	}

	beforeStart := ride.StartTime.Add(-time.Minute)
	if _, err := f.service.Update(context.Background(), ride.ID, owner, service.UpdateRideRequest{EndTime: &beforeStart}); !errors.Is(err, service.ErrEndBeforeStart) {
		t.Errorf("expected ErrEndBeforeStart, got: %v", err)
	}

	bogus := domain.RideStatus("flying")
	if _, err := f.service.Update(context.Background(), ride.ID, owner, service.UpdateRideRequest{Status: &bogus}); !errors.Is(err, service.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got: %v", err)
	}

	if f.repo.UpdateCallCount != 0 {
		t.Errorf("expected no repository updates, got %d", f.repo.UpdateCallCount)
	}
}

func TestRideUpdate_CancelNotifiesPassengers(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	creatorID := uuid.NewString()
	ride := seedRide(f.repo, creatorID, 3)
	passengerID := uuid.NewString()
	if _, err := f.service.Join(context.Background(), ride.ID, passengerID); err != nil {
		t.Fatalf("join: %v", err)
	}

	canceled := domain.RideStatusCanceled
	if _, err := f.service.Update(context.Background(), ride.ID, service.Actor{UserID: creatorID}, service.UpdateRideRequest{Status: &canceled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var found bool
	for _, e := range f.publisher.Events() {
		if n, ok := e.Payload.(service.Notification); ok && n.Type == service.NotificationRideCanceled && n.RecipientID == passengerID {
			found = true
		}
	}
	if !found {
		t.Error("expected RIDE_CANCELED notification for passenger")
	}

	if _, err := f.service.Join(context.Background(), ride.ID, uuid.NewString()); !errors.Is(err, repository.ErrRideNotJoinable) {
		t.Errorf("expected canceled ride to refuse joins, got: %v", err)
	}
}

func TestRideDelete_OnlyCreatorOrAdmin(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	creatorID := uuid.NewString()
	ride := seedRide(f.repo, creatorID, 3)

	if err := f.service.Delete(context.Background(), ride.ID, service.Actor{UserID: uuid.NewString()}); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got: %v", err)
	}
	if err := f.service.Delete(context.Background(), ride.ID, service.Actor{UserID: creatorID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.repo.GetRide(ride.ID) != nil {
		t.Error("expected ride to be removed")
	}
	if err := f.service.Delete(context.Background(), ride.ID, service.Actor{UserID: creatorID}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got: %v", err)
	}
}
