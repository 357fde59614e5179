package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

const userColumns = `id, name, email, password_hash, is_admin, age, profile_picture, bio, stars, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db *sql.DB
	q  Querier
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, q: db}
}

// NewUserRepositoryWithTx creates a user repository using a transaction.
func NewUserRepositoryWithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

// Create adds a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		nullInt(user.Age),
		user.ProfilePicture,
		user.Bio,
		user.Stars,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.UpdatedAt = user.CreatedAt
	user.RidesCreated = []string{}
	user.RidesJoined = []string{}
	return nil
}

// GetByID retrieves a user by ID together with the rides they created and joined.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if err := r.attachRides(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetAll retrieves all users.
func (r *UserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update writes profile fields and the password hash.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, age = $4,
			profile_picture = $5, bio = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		nullInt(user.Age),
		user.ProfilePicture,
		user.Bio,
		user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Delete removes a user. Seats they held on other rides are released first;
// their own rides and passenger rows go with the cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return runInTx(ctx, r.db, r.q, func(q Querier) error {
		_, err := q.ExecContext(ctx, `
			UPDATE rides
			SET available_seats = available_seats + 1, updated_at = NOW()
			WHERE id IN (SELECT ride_id FROM ride_passengers WHERE user_id = $1)
				AND creator_id <> $1
		`, id)
		if err != nil {
			return fmt.Errorf("release seats: %w", err)
		}

		result, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return repository.ErrUserNotFound
		}
		return nil
	})
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// attachRides fills the created and joined ride ID lists.
func (r *UserRepository) attachRides(ctx context.Context, user *domain.User) error {
	var created, joined []string
	err := r.q.QueryRowContext(ctx, `
		SELECT
			ARRAY(SELECT id::text FROM rides WHERE creator_id = $1 ORDER BY created_at),
			ARRAY(SELECT ride_id::text FROM ride_passengers WHERE user_id = $1 ORDER BY joined_at)
	`, user.ID).Scan(pq.Array(&created), pq.Array(&joined))
	if err != nil {
		return fmt.Errorf("query user rides: %w", err)
	}

	if created == nil {
		created = []string{}
	}
	if joined == nil {
		joined = []string{}
	}
	user.RidesCreated = created
	user.RidesJoined = joined
	return nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user domain.User
		age  sql.NullInt64
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		&age,
		&user.ProfilePicture,
		&user.Bio,
		&user.Stars,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Age = intPtr(age)
	return &user, nil
}
