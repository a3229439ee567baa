// Package postgres provides PostgreSQL implementation of identity repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/identity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements identity.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const profileColumns = `id, email, name, password_hash, role, is_system, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.Name,
		&p.Password,
		&p.Role,
		&p.IsSystem,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrProfileNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}

// CreateProfile creates a new profile.
func (r *Repository) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (email, name, password_hash, role, is_system)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		profile.Email,
		profile.Name,
		profile.Password,
		profile.Role,
		profile.IsSystem,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
}

// GetProfileByID retrieves a profile by ID.
func (r *Repository) GetProfileByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return scanProfile(r.db.QueryRow(ctx, query, id))
}

// GetProfileByEmail retrieves a profile by email.
func (r *Repository) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`
	return scanProfile(r.db.QueryRow(ctx, query, email))
}

// GetSystemProfile retrieves the reserved automation actor profile.
func (r *Repository) GetSystemProfile(ctx context.Context) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE is_system = true LIMIT 1`
	return scanProfile(r.db.QueryRow(ctx, query))
}

// ListProfiles retrieves all profiles ordered by creation time.
func (r *Repository) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]domain.Profile, 0)
	for rows.Next() {
		var p domain.Profile
		err := rows.Scan(
			&p.ID,
			&p.Email,
			&p.Name,
			&p.Password,
			&p.Role,
			&p.IsSystem,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

// UpdateProfile updates a profile's mutable fields.
func (r *Repository) UpdateProfile(ctx context.Context, profile *domain.Profile) error {
	query := `
		UPDATE profiles
		SET name = $2, role = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, profile.ID, profile.Name, profile.Role).Scan(&profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.ErrProfileNotFound
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// SaveRefreshToken stores a refresh token.
func (r *Repository) SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, profile_id, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.Exec(ctx, query, token.Token, token.ProfileID, token.ExpiresAt); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken retrieves a refresh token.
func (r *Repository) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query := `SELECT token, profile_id, expires_at, created_at FROM refresh_tokens WHERE token = $1`
	var t domain.RefreshToken
	err := r.db.QueryRow(ctx, query, token).Scan(&t.Token, &t.ProfileID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &t, nil
}

// DeleteRefreshToken deletes a refresh token.
func (r *Repository) DeleteRefreshToken(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteProfileRefreshTokens deletes all refresh tokens for a profile.
func (r *Repository) DeleteProfileRefreshTokens(ctx context.Context, profileID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("delete profile refresh tokens: %w", err)
	}
	return nil
}
