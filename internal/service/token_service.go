package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// TokenConfig holds signing material and lifetimes for issued tokens.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenService issues and verifies HS256 signed access and refresh tokens.
// Each kind is signed with its own secret and carries its kind in the typ claim.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenService validates the configuration and returns a TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" || strings.TrimSpace(cfg.RefreshSecret) == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	return &TokenService{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// Issue signs a fresh access/refresh pair for the user. The refresh token's
// ID is returned so callers can persist it for rotation and revocation.
func (s *TokenService) Issue(user *models.User) (*models.TokenPair, error) {
	issuedAt := s.now()
	accessExp := issuedAt.Add(s.cfg.AccessTTL)
	refreshExp := issuedAt.Add(s.cfg.RefreshTTL)
	refreshID := uuid.NewString()

	access, err := s.sign(&models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Kind:   models.TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}, s.cfg.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.sign(&models.JWTClaims{
		UserID: user.ID,
		Kind:   models.TokenKindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID,
			ID:        refreshID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	}, s.cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshID:        refreshID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		IssuedAt:         issuedAt,
	}, nil
}

// Verify parses token with the secret for kind. Any signature, algorithm,
// expiry or kind mismatch yields ErrInvalidToken.
func (s *TokenService) Verify(token string, kind models.TokenKind) (*models.JWTClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, appErrors.ErrInvalidToken
	}

	secret := s.cfg.AccessSecret
	if kind == models.TokenKindRefresh {
		secret = s.cfg.RefreshSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &models.JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}

	claims, ok := parsed.Claims.(*models.JWTClaims)
	if !ok || !parsed.Valid || claims.Kind != kind || claims.UserID == "" {
		return nil, appErrors.ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) sign(claims *models.JWTClaims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
