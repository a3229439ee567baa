// Package jwt provides a JWT-based implementation of identity.Authenticator.
package jwt

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/identity"
	"github.com/golang-jwt/jwt/v5"
)

// Config contains JWT authenticator configuration.
type Config struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

// Authenticator issues HMAC-signed access tokens and opaque refresh tokens
// persisted through the identity repository.
type Authenticator struct {
	config Config
	repo   identity.Repository
}

// NewAuthenticator creates a new JWT authenticator.
func NewAuthenticator(config Config, repo identity.Repository) *Authenticator {
	return &Authenticator{config: config, repo: repo}
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateTokens issues a new access/refresh token pair for a profile.
func (a *Authenticator) GenerateTokens(ctx context.Context, profile *domain.Profile) (*identity.TokenPair, error) {
	accessToken, err := a.signAccessToken(profile.ID, profile.Role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := generateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := a.repo.SaveRefreshToken(ctx, &domain.RefreshToken{
		Token:     refreshToken,
		ProfileID: profile.ID,
		ExpiresAt: time.Now().Add(a.config.RefreshTokenDuration),
	}); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &identity.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// ValidateAccessToken parses and validates an access token.
func (a *Authenticator) ValidateAccessToken(_ context.Context, token string) (string, domain.Role, error) {
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.config.SecretKey), nil
	})
	if err != nil || !parsed.Valid {
		return "", "", identity.ErrInvalidToken
	}

	role := domain.Role(claims.Role)
	if !role.IsValid() {
		return "", "", identity.ErrInvalidToken
	}

	return claims.Subject, role, nil
}

// RefreshTokens rotates a refresh token, issuing a new pair.
func (a *Authenticator) RefreshTokens(ctx context.Context, refreshToken string) (*identity.TokenPair, error) {
	stored, err := a.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	if time.Now().After(stored.ExpiresAt) {
		_ = a.repo.DeleteRefreshToken(ctx, refreshToken)
		return nil, identity.ErrInvalidToken
	}

	profile, err := a.repo.GetProfileByID(ctx, stored.ProfileID)
	if err != nil {
		return nil, identity.ErrInvalidToken
	}

	// Rotate: the old token is single-use.
	if err := a.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("delete refresh token: %w", err)
	}

	return a.GenerateTokens(ctx, profile)
}

// RevokeRefreshToken invalidates a refresh token.
func (a *Authenticator) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return a.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (a *Authenticator) signAccessToken(profileID string, role domain.Role) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.AccessTokenDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.config.SecretKey))
}

func generateOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
