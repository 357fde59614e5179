package app

import (
	"log"

	"github.com/nats-io/nats.go"

	"rideshare/internal/config"
	"rideshare/internal/messaging"
	"rideshare/internal/service"
)

// NewEventPublisher connects to NATS when enabled. A disabled or unreachable NATS
// falls back to logging events so the API keeps serving.
func NewEventPublisher(cfg config.NATSConfig, name string) (service.EventPublisher, *nats.Conn) {
	if !cfg.Enabled {
		log.Println("NATS disabled, events are logged only")
		return messaging.LogPublisher{}, nil
	}

	nc, err := messaging.Connect(cfg.URL, name)
	if err != nil {
		log.Printf("NATS unavailable, events are logged only: %v", err)
		return messaging.LogPublisher{}, nil
	}
	log.Printf("Connected to NATS at %s", nc.ConnectedUrl())
	return messaging.NewPublisher(nc, cfg.SubjectPrefix), nc
}
