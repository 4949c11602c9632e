/**
 * @description
 * PostgreSQL user repository for the identity-service. The unique constraint
 * on email is the authoritative duplicate guard: the saga's pre-check is a
 * fast path, and a racing insert still fails with a 23505 that is mapped to
 * ErrEmailTaken. DeleteUser exists solely as the saga's compensating action.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paylane/wallet-platform/internal/identity/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("user already exists")
)

// UpdateProfileParams carries the optional profile fields of a partial
// update; nil means "leave unchanged".
type UpdateProfileParams struct {
	FirstName *string
	LastName  *string
}

// UserRepository defines the interface for user data storage.
type UserRepository interface {
	CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (*domain.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*domain.User, error)
}

// PostgresUserRepository is the PostgreSQL implementation of UserRepository.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository creates a new instance of PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// EnsureSchema creates the users table if it does not exist yet.
func (r *PostgresUserRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
    `)
	if err != nil {
		return fmt.Errorf("ensure identity schema: %w", err)
	}
	return nil
}

const userColumns = "id, email, password_hash, first_name, last_name, created_at, updated_at"

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user record and returns it.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (*domain.User, error) {
	query := `
        INSERT INTO users (email, password_hash, first_name, last_name)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, email, passwordHash, firstName, lastName))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user record. It is the saga's compensating action.
func (r *PostgresUserRepository) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FindByEmail fetches a user by email.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// FindByID fetches a user by ID.
func (r *PostgresUserRepository) FindByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a partial profile update and returns the new state.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*domain.User, error) {
	query := `
        UPDATE users
        SET first_name = COALESCE($1, first_name),
            last_name = COALESCE($2, last_name),
            updated_at = NOW()
        WHERE id = $3
        RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, params.FirstName, params.LastName, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}
