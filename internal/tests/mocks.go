package tests

import (
	"context"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"rideshare/internal/domain"
	"rideshare/internal/redis"
	"rideshare/internal/repository"
	"rideshare/internal/search"
)

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	// Rides, when set, backs the ride back-references and delete cascade.
	Rides *MockRideRepository

	// Counters for verification
	CreateCallCount int32
	DeleteCallCount int32

	// Error injection
	CreateError error
	GetError    error
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.UpdatedAt = user.CreatedAt
	user.RidesCreated = []string{}
	user.RidesJoined = []string{}
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	user, ok := m.users[id]
	m.mu.RUnlock()
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := copyUser(user)
	out.RidesCreated, out.RidesJoined = []string{}, []string{}
	if m.Rides != nil {
		out.RidesCreated, out.RidesJoined = m.Rides.refsFor(id)
	}
	return out, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, copyUser(u))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for _, u := range m.users {
		if u.ID != user.ID && u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	if _, ok := m.users[id]; !ok {
		m.mu.Unlock()
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	m.mu.Unlock()

	if m.Rides != nil {
		m.Rides.removeUser(id)
	}
	return nil
}

// GetUser returns the stored user for test assertions.
func (m *MockUserRepository) GetUser(id string) *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[id]
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.RidesCreated = slices.Clone(u.RidesCreated)
	c.RidesJoined = slices.Clone(u.RidesJoined)
	return &c
}

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. Join takes
// the write lock for the whole check-and-update, like the conditional UPDATE.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32
	JoinCallCount   int32
	GetCallCount    int32

	// Error injection
	CreateError error
	UpdateError error
	SearchError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{rides: make(map[string]*domain.Ride)}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ride.Passengers == nil {
		ride.Passengers = []string{}
	}
	m.rides[ride.ID] = ride
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride.AvailableSeats = ride.Seats
	ride.UpdatedAt = ride.CreatedAt
	if ride.Passengers == nil {
		ride.Passengers = []string{}
	}
	m.rides[ride.ID] = copyRide(ride)
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrRideNotFound
	}
	return copyRide(ride), nil
}

func (m *MockRideRepository) GetAll(ctx context.Context, page repository.Page) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		result = append(result, copyRide(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if page.Offset >= len(result) {
		return []*domain.Ride{}, nil
	}
	result = result[page.Offset:]
	if page.Limit > 0 && page.Limit < len(result) {
		result = result[:page.Limit]
	}
	return result, nil
}

func (m *MockRideRepository) Search(ctx context.Context, f search.Filter) ([]*domain.Ride, error) {
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	all, _ := m.GetAll(ctx, repository.Page{})
	return f.Apply(all), nil
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rides[ride.ID]
	if !ok {
		return repository.ErrRideNotFound
	}
	if ride.Seats < len(stored.Passengers) {
		return repository.ErrSeatsBelowPassengers
	}
	ride.Passengers = slices.Clone(stored.Passengers)
	ride.AvailableSeats = ride.Seats - len(stored.Passengers)
	ride.UpdatedAt = time.Now()
	m.rides[ride.ID] = copyRide(ride)
	return nil
}

func (m *MockRideRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[id]; !ok {
		return repository.ErrRideNotFound
	}
	delete(m.rides, id)
	return nil
}

func (m *MockRideRepository) Join(ctx context.Context, rideID, userID string) (*domain.Ride, error) {
	atomic.AddInt32(&m.JoinCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	switch {
	case !ok:
		return nil, repository.ErrRideNotFound
	case ride.HasPassenger(userID):
		return nil, repository.ErrAlreadyJoined
	case !ride.Status.Joinable():
		return nil, repository.ErrRideNotJoinable
	case ride.AvailableSeats <= 0:
		return nil, repository.ErrRideFull
	}
	ride.Passengers = append(ride.Passengers, userID)
	ride.AvailableSeats--
	ride.UpdatedAt = time.Now()
	return copyRide(ride), nil
}

// GetRide returns the stored ride for test assertions.
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

func (m *MockRideRepository) refsFor(userID string) (created, joined []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	created, joined = []string{}, []string{}
	for _, r := range m.rides {
		if r.CreatorID == userID {
			created = append(created, r.ID)
		}
		if r.HasPassenger(userID) {
			joined = append(joined, r.ID)
		}
	}
	sort.Strings(created)
	sort.Strings(joined)
	return created, joined
}

// removeUser mirrors the SQL delete: seats come back, owned rides go.
func (m *MockRideRepository) removeUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rides {
		if r.CreatorID == userID {
			delete(m.rides, id)
			continue
		}
		if i := slices.Index(r.Passengers, userID); i >= 0 {
			r.Passengers = slices.Delete(r.Passengers, i, i+1)
			r.AvailableSeats++
		}
	}
}

func copyRide(r *domain.Ride) *domain.Ride {
	c := *r
	c.Passengers = slices.Clone(r.Passengers)
	if c.Passengers == nil {
		c.Passengers = []string{}
	}
	return &c
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockRideCache is a mock implementation of RideCacheInterface.
type MockRideCache struct {
	mu    sync.Mutex
	rides map[string]*domain.Ride

	HitCount        int32
	InvalidateCount int32

	GetError error
}

// NewMockRideCache creates a new mock ride cache.
func NewMockRideCache() *MockRideCache {
	return &MockRideCache{rides: make(map[string]*domain.Ride)}
}

func (m *MockRideCache) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return nil, nil
	}
	atomic.AddInt32(&m.HitCount, 1)
	return copyRide(ride), nil
}

func (m *MockRideCache) SetRide(ctx context.Context, ride *domain.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = copyRide(ride)
	return nil
}

func (m *MockRideCache) InvalidateRide(ctx context.Context, rideIDs ...string) error {
	atomic.AddInt32(&m.InvalidateCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range rideIDs {
		delete(m.rides, id)
	}
	return nil
}

// Cached reports whether a ride is currently cached.
func (m *MockRideCache) Cached(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rides[rideID]
	return ok
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Duration

	IsRevokedError error
}

// NewMockTokenStore creates a new mock token store.
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{revoked: make(map[string]time.Duration)}
}

func (m *MockTokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl > 0 {
		m.revoked[tokenID] = ttl
	}
	return nil
}

func (m *MockTokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if m.IsRevokedError != nil {
		return false, m.IsRevokedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

// TTL returns the revocation TTL recorded for a token.
func (m *MockTokenStore) TTL(tokenID string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[tokenID]
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent is one recorded Publish call.
type PublishedEvent struct {
	Subject string
	Payload any
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	PublishError error
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{Subject: subject, Payload: payload})
	return m.PublishError
}

// Subjects returns the published subjects in order.
func (m *MockPublisher) Subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Subject)
	}
	return out
}

// Events returns a copy of the recorded events.
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

// Ensure mocks implement interfaces.
var (
	_ repository.UserRepository = (*MockUserRepository)(nil)
	_ repository.RideRepository = (*MockRideRepository)(nil)
	_ redis.RideCacheInterface  = (*MockRideCache)(nil)
	_ redis.TokenStoreInterface = (*MockTokenStore)(nil)
)
