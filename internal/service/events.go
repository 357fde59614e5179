package service

import (
	"context"
	"log"
	"time"

	"rideshare/internal/domain"
)

// EventPublisher delivers domain events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Ride event subjects.
const (
	SubjectRideCreated = "rides.created"
	SubjectRideUpdated = "rides.updated"
	SubjectRideDeleted = "rides.deleted"
	SubjectRideJoined  = "rides.joined"
)

// RideEvent is the payload published for ride lifecycle changes.
type RideEvent struct {
	RideID         string            `json:"rideId"`
	CreatorID      string            `json:"creatorId"`
	ActorID        string            `json:"actorId,omitempty"`
	Status         domain.RideStatus `json:"status"`
	Seats          int               `json:"seats"`
	AvailableSeats int               `json:"availableSeats"`
	OccurredAt     time.Time         `json:"occurredAt"`
}

func newRideEvent(ride *domain.Ride, actorID string, now time.Time) RideEvent {
	return RideEvent{
		RideID:         ride.ID,
		CreatorID:      ride.CreatorID,
		ActorID:        actorID,
		Status:         ride.Status,
		Seats:          ride.Seats,
		AvailableSeats: ride.AvailableSeats,
		OccurredAt:     now,
	}
}

// publish is best effort. The write has already committed, so a failed publish
// is logged and never surfaces to the caller.
func publish(ctx context.Context, p EventPublisher, subject string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, payload); err != nil {
		log.Printf("failed to publish %s: %v", subject, err)
	}
}
