package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"rideshare/internal/domain"
)

// RideCacheTTL bounds how stale a ride detail can be when an invalidation is missed.
const RideCacheTTL = 30 * time.Second

const rideCachePrefix = "cache:ride:"

// CacheStore handles ride detail caching in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client, ttl: RideCacheTTL}
}

// GetRide retrieves a ride from cache. A miss returns nil, nil.
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	data, err := s.client.Get(ctx, rideCachePrefix+rideID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var ride domain.Ride
	if err := json.Unmarshal(data, &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

// SetRide stores a ride in cache.
func (s *CacheStore) SetRide(ctx context.Context, ride *domain.Ride) error {
	data, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, rideCachePrefix+ride.ID, data, s.ttl).Err()
}

// InvalidateRide removes rides from cache.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideIDs ...string) error {
	if len(rideIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rideIDs))
	for _, id := range rideIDs {
		keys = append(keys, rideCachePrefix+id)
	}
	return s.client.Del(ctx, keys...).Err()
}
