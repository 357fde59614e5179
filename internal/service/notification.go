package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationPassengerJoined NotificationType = "PASSENGER_JOINED"
	NotificationRideFull        NotificationType = "RIDE_FULL"
	NotificationRideUpdated     NotificationType = "RIDE_UPDATED"
	NotificationRideCanceled    NotificationType = "RIDE_CANCELED"
)

// Notification represents a notification to be sent.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	RecipientID string           `json:"recipientId"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Data        map[string]any   `json:"data,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NotificationService formats user-facing notifications and hands them to the
// event publisher on "notifications.<recipient>". Delivery to devices is left
// to downstream consumers.
type NotificationService struct {
	publisher EventPublisher
	now       func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(publisher EventPublisher) *NotificationService {
	return &NotificationService{publisher: publisher, now: time.Now}
}

// NotifyPassengerJoined tells the ride creator that someone took a seat.
func (s *NotificationService) NotifyPassengerJoined(ctx context.Context, ride *domain.Ride, passengerID string) error {
	err := s.send(ctx, Notification{
		Type:        NotificationPassengerJoined,
		RecipientID: ride.CreatorID,
		Title:       "New Passenger",
		Message: fmt.Sprintf("A passenger joined your ride from %s to %s. %d seat(s) left.",
			ride.Origin.Name, ride.Destination.Name, ride.AvailableSeats),
		Data: map[string]any{
			"ride_id":         ride.ID,
			"passenger_id":    passengerID,
			"available_seats": ride.AvailableSeats,
		},
	})
	if err != nil || ride.AvailableSeats > 0 {
		return err
	}

	return s.send(ctx, Notification{
		Type:        NotificationRideFull,
		RecipientID: ride.CreatorID,
		Title:       "Ride Full",
		Message:     fmt.Sprintf("Your ride from %s to %s is now full.", ride.Origin.Name, ride.Destination.Name),
		Data:        map[string]any{"ride_id": ride.ID},
	})
}

// NotifyRideUpdated tells every passenger that ride details changed.
func (s *NotificationService) NotifyRideUpdated(ctx context.Context, ride *domain.Ride) error {
	for _, passengerID := range ride.Passengers {
		err := s.send(ctx, Notification{
			Type:        NotificationRideUpdated,
			RecipientID: passengerID,
			Title:       "Ride Updated",
			Message: fmt.Sprintf("Your ride from %s to %s now departs at %s.",
				ride.Origin.Name, ride.Destination.Name, ride.StartTime.Format(time.RFC3339)),
			Data: map[string]any{
				"ride_id":    ride.ID,
				"start_time": ride.StartTime,
				"status":     ride.Status,
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// NotifyRideCanceled tells every passenger that the ride will not happen.
func (s *NotificationService) NotifyRideCanceled(ctx context.Context, ride *domain.Ride) error {
	for _, passengerID := range ride.Passengers {
		err := s.send(ctx, Notification{
			Type:        NotificationRideCanceled,
			RecipientID: passengerID,
			Title:       "Ride Canceled",
			Message:     fmt.Sprintf("Your ride from %s to %s was canceled.", ride.Origin.Name, ride.Destination.Name),
			Data:        map[string]any{"ride_id": ride.ID},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	if notification.RecipientID == "" {
		return nil
	}
	notification.ID = uuid.NewString()
	notification.CreatedAt = s.now()

	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s",
		notification.Type, notification.RecipientID, notification.Title)

	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(ctx, "notifications."+notification.RecipientID, notification)
}
