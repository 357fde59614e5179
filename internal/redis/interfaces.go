package redis

import (
	"context"
	"time"

	"rideshare/internal/domain"
)

// RideCacheInterface defines ride detail caching operations.
type RideCacheInterface interface {
	GetRide(ctx context.Context, rideID string) (*domain.Ride, error)
	SetRide(ctx context.Context, ride *domain.Ride) error
	InvalidateRide(ctx context.Context, rideIDs ...string) error
}

// TokenStoreInterface defines token revocation operations.
type TokenStoreInterface interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Ensure concrete types implement interfaces.
var (
	_ RideCacheInterface  = (*CacheStore)(nil)
	_ TokenStoreInterface = (*TokenStore)(nil)
)
