package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
	"rideshare/internal/search"
)

// rideSelect joins the creator so every read carries a creator summary.
const rideSelect = `
	SELECT r.id, r.creator_id,
		r.origin_place, r.origin_lng, r.origin_lat,
		r.destination_place, r.destination_lng, r.destination_lat,
		r.start_time, r.end_time, r.seats, r.available_seats, r.price, r.status,
		r.vehicle_number, r.vehicle_model, r.created_at, r.updated_at,
		u.name, u.profile_picture, u.stars, u.age, u.created_at,
		(SELECT COUNT(*) FROM rides c WHERE c.creator_id = r.creator_id)
	FROM rides r
	JOIN users u ON u.id = r.creator_id`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	db *sql.DB // nil when bound to an outer transaction
	q  Querier
}

var _ repository.RideRepository = (*RideRepository)(nil)

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{db: db, q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// Create persists a new ride. Available seats start at capacity.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, creator_id, origin_place, origin_lng, origin_lat,
			destination_place, destination_lng, destination_lat, start_time, end_time,
			seats, available_seats, price, status, vehicle_number, vehicle_model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, $12, $13, $14, $15, $16, $16)
	`

	oLng, oLat := coordArgs(ride.Origin.Coordinates)
	dLng, dLat := coordArgs(ride.Destination.Coordinates)

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.CreatorID,
		ride.Origin.Name, oLng, oLat,
		ride.Destination.Name, dLng, dLat,
		ride.StartTime,
		ride.EndTime,
		ride.Seats,
		ride.Price,
		ride.Status,
		ride.Vehicle.Number,
		ride.Vehicle.Model,
		ride.CreatedAt,
	)
	if err != nil {
		// The creator was deleted while still holding a valid token.
		if isForeignKeyViolation(err) {
			return repository.ErrUserNotFound
		}
		return fmt.Errorf("insert ride: %w", err)
	}

	ride.AvailableSeats = ride.Seats
	ride.UpdatedAt = ride.CreatedAt
	return nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx, rideSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrRideNotFound
		}
		return nil, err
	}

	if err := r.attachPassengers(ctx, []*domain.Ride{ride}); err != nil {
		return nil, err
	}
	return ride, nil
}

// GetAll retrieves rides most recent first, bounded by page.
func (r *RideRepository) GetAll(ctx context.Context, page repository.Page) ([]*domain.Ride, error) {
	query := rideSelect + ` ORDER BY r.created_at DESC, r.id OFFSET $1`
	args := []any{page.Offset}
	if page.Limit > 0 {
		query += ` LIMIT $2`
		args = append(args, page.Limit)
	}
	return r.list(ctx, query, args...)
}

// Search returns rides matching the filter in the requested order.
func (r *RideRepository) Search(ctx context.Context, f search.Filter) ([]*domain.Ride, error) {
	query, args := buildSearchQuery(f)
	return r.list(ctx, query, args...)
}

// buildSearchQuery translates a search.Filter into SQL with positional arguments.
func buildSearchQuery(f search.Filter) (string, []any) {
	var qb strings.Builder
	qb.WriteString(rideSelect)
	qb.WriteString(` WHERE r.origin_place ILIKE $1 ESCAPE '\' AND r.destination_place ILIKE $2 ESCAPE '\'`)
	qb.WriteString(` AND r.available_seats >= $3 AND r.start_time >= $4 AND r.start_time < $5`)

	args := []any{likePattern(f.Origin), likePattern(f.Destination), f.MinSeats, f.Day.Start, f.Day.End}
	argCount := len(args) + 1

	if f.ExcludeStatus != "" {
		qb.WriteString(fmt.Sprintf(" AND r.status <> $%d", argCount))
		args = append(args, f.ExcludeStatus)
		argCount++
	}

	if len(f.Departures) > 0 {
		windows := make([]string, 0, len(f.Departures))
		for _, w := range f.Departures {
			windows = append(windows, fmt.Sprintf("(r.start_time >= $%d AND r.start_time < $%d)", argCount, argCount+1))
			args = append(args, w.Start, w.End)
			argCount += 2
		}
		qb.WriteString(" AND (" + strings.Join(windows, " OR ") + ")")
	}

	switch f.Sort {
	case search.SortPrice:
		qb.WriteString(" ORDER BY r.price ASC, r.start_time ASC, r.id ASC")
	case search.SortDuration:
		qb.WriteString(" ORDER BY (r.end_time - r.start_time) ASC, r.start_time ASC, r.id ASC")
	default:
		qb.WriteString(" ORDER BY r.start_time ASC, r.id ASC")
	}

	return qb.String(), args
}

// likePattern wraps s for a case-insensitive substring match, escaping LIKE metacharacters.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// Update writes the mutable fields of a ride. Available seats are recomputed from the
// passenger table under a row lock so concurrent joins are never lost.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	return runInTx(ctx, r.db, r.q, func(q Querier) error {
		var locked string
		err := q.QueryRowContext(ctx, `SELECT id FROM rides WHERE id = $1 FOR UPDATE`, ride.ID).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrRideNotFound
			}
			return fmt.Errorf("lock ride: %w", err)
		}

		var passengers int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ride_passengers WHERE ride_id = $1`, ride.ID).Scan(&passengers); err != nil {
			return fmt.Errorf("count passengers: %w", err)
		}
		if ride.Seats < passengers {
			return repository.ErrSeatsBelowPassengers
		}

		oLng, oLat := coordArgs(ride.Origin.Coordinates)
		dLng, dLat := coordArgs(ride.Destination.Coordinates)

		query := `
			UPDATE rides
			SET origin_place = $1, origin_lng = $2, origin_lat = $3,
				destination_place = $4, destination_lng = $5, destination_lat = $6,
				start_time = $7, end_time = $8, seats = $9, available_seats = $10,
				price = $11, status = $12, vehicle_number = $13, vehicle_model = $14, updated_at = NOW()
			WHERE id = $15
			RETURNING updated_at
		`
		err = q.QueryRowContext(ctx, query,
			ride.Origin.Name, oLng, oLat,
			ride.Destination.Name, dLng, dLat,
			ride.StartTime,
			ride.EndTime,
			ride.Seats,
			ride.Seats-passengers,
			ride.Price,
			ride.Status,
			ride.Vehicle.Number,
			ride.Vehicle.Model,
			ride.ID,
		).Scan(&ride.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update ride: %w", err)
		}

		ride.AvailableSeats = ride.Seats - passengers
		return nil
	})
}

// Delete removes a ride. Passenger rows cascade.
func (r *RideRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM rides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ride: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrRideNotFound
	}
	return nil
}

// Join reserves a seat with a conditional decrement. The UPDATE takes the row lock and
// re-checks available_seats on the latest row version, so concurrent joins serialize;
// the passenger primary key rejects a duplicate join that slipped past the NOT EXISTS.
func (r *RideRepository) Join(ctx context.Context, rideID, userID string) (*domain.Ride, error) {
	err := runInTx(ctx, r.db, r.q, func(q Querier) error {
		result, err := q.ExecContext(ctx, `
			UPDATE rides
			SET available_seats = available_seats - 1, updated_at = NOW()
			WHERE id = $1
				AND available_seats > 0
				AND status IN ('pending', 'active')
				AND NOT EXISTS (SELECT 1 FROM ride_passengers WHERE ride_id = $1 AND user_id = $2)
		`, rideID, userID)
		if err != nil {
			return fmt.Errorf("reserve seat: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return diagnoseJoin(ctx, q, rideID, userID)
		}

		result, err = q.ExecContext(ctx, `
			INSERT INTO ride_passengers (ride_id, user_id, joined_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (ride_id, user_id) DO NOTHING
		`, rideID, userID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrUserNotFound
			}
			return fmt.Errorf("add passenger: %w", err)
		}
		if rowsAffected, err = result.RowsAffected(); err != nil {
			return err
		}
		if rowsAffected == 0 {
			return repository.ErrAlreadyJoined
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, rideID)
}

// diagnoseJoin explains why the conditional seat reservation matched no row.
func diagnoseJoin(ctx context.Context, q Querier, rideID, userID string) error {
	var (
		status    domain.RideStatus
		available int
		joined    bool
	)
	err := q.QueryRowContext(ctx, `
		SELECT status, available_seats,
			EXISTS (SELECT 1 FROM ride_passengers WHERE ride_id = $1 AND user_id = $2)
		FROM rides WHERE id = $1
	`, rideID, userID).Scan(&status, &available, &joined)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrRideNotFound
		}
		return fmt.Errorf("inspect ride: %w", err)
	}

	switch {
	case joined:
		return repository.ErrAlreadyJoined
	case !status.Joinable():
		return repository.ErrRideNotJoinable
	default:
		return repository.ErrRideFull
	}
}

func (r *RideRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rides: %w", err)
	}
	defer rows.Close()

	rides := make([]*domain.Ride, 0)
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachPassengers(ctx, rides); err != nil {
		return nil, err
	}
	return rides, nil
}

// attachPassengers loads passenger IDs for all rides in one query.
func (r *RideRepository) attachPassengers(ctx context.Context, rides []*domain.Ride) error {
	if len(rides) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Ride, len(rides))
	ids := make([]string, 0, len(rides))
	for _, ride := range rides {
		ride.Passengers = []string{}
		byID[ride.ID] = ride
		ids = append(ids, ride.ID)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT ride_id, user_id FROM ride_passengers WHERE ride_id = ANY($1) ORDER BY joined_at ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("query passengers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rideID, userID string
		if err := rows.Scan(&rideID, &userID); err != nil {
			return err
		}
		if ride, ok := byID[rideID]; ok {
			ride.Passengers = append(ride.Passengers, userID)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var (
		ride             domain.Ride
		creator          domain.CreatorSummary
		oLng, oLat       sql.NullFloat64
		dLng, dLat       sql.NullFloat64
		creatorAge       sql.NullInt64
		ridesCreatedByID int
	)

	err := row.Scan(
		&ride.ID,
		&ride.CreatorID,
		&ride.Origin.Name, &oLng, &oLat,
		&ride.Destination.Name, &dLng, &dLat,
		&ride.StartTime,
		&ride.EndTime,
		&ride.Seats,
		&ride.AvailableSeats,
		&ride.Price,
		&ride.Status,
		&ride.Vehicle.Number,
		&ride.Vehicle.Model,
		&ride.CreatedAt,
		&ride.UpdatedAt,
		&creator.Name,
		&creator.ProfilePicture,
		&creator.Stars,
		&creatorAge,
		&creator.MemberSince,
		&ridesCreatedByID,
	)
	if err != nil {
		return nil, err
	}

	ride.Origin.Coordinates = coordinates(oLng, oLat)
	ride.Destination.Coordinates = coordinates(dLng, dLat)

	creator.ID = ride.CreatorID
	creator.Age = intPtr(creatorAge)
	creator.RidesCreatedCount = ridesCreatedByID
	ride.Creator = &creator

	return &ride, nil
}

func coordArgs(c *domain.Coordinates) (sql.NullFloat64, sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return nullFloat(&c.Lng), nullFloat(&c.Lat)
}

func coordinates(lng, lat sql.NullFloat64) *domain.Coordinates {
	if !lng.Valid || !lat.Valid {
		return nil
	}
	return &domain.Coordinates{Lng: lng.Float64, Lat: lat.Float64}
}

// FindSimilarRoutes returns rides between places matching origin and destination in
// either direction, earliest first.
func (r *RideRepository) FindSimilarRoutes(ctx context.Context, origin, destination string) ([]*domain.Ride, error) {
	query := rideSelect + `
		WHERE (r.origin_place ILIKE $1 ESCAPE '\' AND r.destination_place ILIKE $2 ESCAPE '\')
			OR (r.origin_place ILIKE $2 ESCAPE '\' AND r.destination_place ILIKE $1 ESCAPE '\')
		ORDER BY r.start_time ASC, r.id ASC`
	return r.list(ctx, query, likePattern(origin), likePattern(destination))
}
