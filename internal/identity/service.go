package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// SystemProfileEmail is the well-known address of the reserved automation
// actor. The profile is created lazily on first use and never logs in.
const SystemProfileEmail = "system@postmortem-garden.local"

const systemProfileName = "Automation"

// TokenPair holds an access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Authenticator issues and validates tokens.
type Authenticator interface {
	GenerateTokens(ctx context.Context, profile *domain.Profile) (*TokenPair, error)
	ValidateAccessToken(ctx context.Context, token string) (profileID string, role domain.Role, err error)
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) error
}

// Service provides identity business logic.
type Service struct {
	repo Repository
	auth Authenticator
}

// NewService creates a new identity service.
func NewService(repo Repository, auth Authenticator) *Service {
	return &Service{repo: repo, auth: auth}
}

// RegisterInput holds data for registering a new profile.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a new profile with the viewer role.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Profile, error) {
	if _, err := s.repo.GetProfileByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := input.Name
	if name == "" {
		name = input.Email
	}

	profile := &domain.Profile{
		Email:    input.Email,
		Name:     name,
		Password: string(hash),
		Role:     domain.RoleViewer,
	}

	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	slog.Info("profile registered", "profile_id", profile.ID)
	return profile, nil
}

// LoginInput holds credentials for login.
type LoginInput struct {
	Email    string
	Password string
}

// Login authenticates a profile and issues a token pair.
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.Profile, *TokenPair, error) {
	profile, err := s.repo.GetProfileByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get profile: %w", err)
	}

	// The system profile has no usable password.
	if profile.IsSystem {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(input.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.auth.GenerateTokens(ctx, profile)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	return profile, tokens, nil
}

// RefreshTokens exchanges a refresh token for a new token pair.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return s.auth.RefreshTokens(ctx, refreshToken)
}

// Logout revokes a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.auth.RevokeRefreshToken(ctx, refreshToken)
}

// GetProfileByID returns a profile by its ID.
func (s *Service) GetProfileByID(ctx context.Context, id string) (*domain.Profile, error) {
	return s.repo.GetProfileByID(ctx, id)
}

// ListProfiles returns all profiles. Admin only (enforced at the route level).
func (s *Service) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return s.repo.ListProfiles(ctx)
}

// UpdateRole changes a profile's role.
func (s *Service) UpdateRole(ctx context.Context, profileID string, role domain.Role) (*domain.Profile, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	profile, err := s.repo.GetProfileByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if profile.IsSystem {
		return nil, ErrSystemProfile
	}

	profile.Role = role
	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	slog.Info("profile role updated", "profile_id", profileID, "role", role)
	return profile, nil
}

// SystemProfile returns the reserved automation actor, creating it on
// first use.
func (s *Service) SystemProfile(ctx context.Context) (*domain.Profile, error) {
	profile, err := s.repo.GetSystemProfile(ctx)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("get system profile: %w", err)
	}

	profile = &domain.Profile{
		Email:    SystemProfileEmail,
		Name:     systemProfileName,
		Password: "",
		Role:     domain.RoleAdmin,
		IsSystem: true,
	}
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create system profile: %w", err)
	}

	slog.Info("system profile created", "profile_id", profile.ID)
	return profile, nil
}

// ValidateToken implements httputil.TokenValidator.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, domain.Role, error) {
	return s.auth.ValidateAccessToken(ctx, token)
}
