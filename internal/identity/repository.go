// Package identity provides profile management and authentication.
package identity

import (
	"context"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

// Repository defines the interface for identity data access.
type Repository interface {
	CreateProfile(ctx context.Context, profile *domain.Profile) error
	GetProfileByID(ctx context.Context, id string) (*domain.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	UpdateProfile(ctx context.Context, profile *domain.Profile) error

	// GetSystemProfile returns the reserved automation actor profile, if present.
	GetSystemProfile(ctx context.Context) (*domain.Profile, error)

	SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteProfileRefreshTokens(ctx context.Context, profileID string) error
}
