package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gametaverns/gametaverns/internal/identity"
	"github.com/jackc/pgx/v5"
)

// UserRepository implements identity.Repository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user row
func (r *UserRepository) Create(ctx context.Context, u *identity.User) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.CreatedAt, u.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return identity.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	return r.get(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.get(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`, email)
}

// Update persists user mutations
func (r *UserRepository) Update(ctx context.Context, u *identity.User) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE users SET email = $2, display_name = $3, password_hash = $4, updated_at = $5
		WHERE id = $1
	`, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) get(ctx context.Context, query string, arg any) (*identity.User, error) {
	var u identity.User
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}
