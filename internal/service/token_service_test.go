package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

func TestNewTokenServiceRequiresSecrets(t *testing.T) {
	_, err := NewTokenService(TokenConfig{AccessSecret: "a"})
	require.Error(t, err)

	svc, err := NewTokenService(TokenConfig{AccessSecret: "a", RefreshSecret: "b"})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, svc.AccessTTL())
	assert.Equal(t, 24*time.Hour, svc.RefreshTTL())
}

func TestTokenServiceIssueAndVerify(t *testing.T) {
	svc := newTestTokenService(t)
	user := &models.User{ID: "u1", Role: models.RoleTeacher}

	pair, err := svc.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshID)
	assert.Equal(t, pair.IssuedAt.Add(15*time.Minute), pair.AccessExpiresAt)

	claims, err := svc.Verify(pair.AccessToken, models.TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)

	refresh, err := svc.Verify(pair.RefreshToken, models.TokenKindRefresh)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshID, refresh.ID)
	assert.Empty(t, refresh.Role)
}

func TestTokenServiceVerifyRejects(t *testing.T) {
	svc := newTestTokenService(t)
	pair, err := svc.Issue(&models.User{ID: "u1", Role: models.RoleStudent})
	require.NoError(t, err)

	other, err := NewTokenService(TokenConfig{AccessSecret: "other", RefreshSecret: "other-refresh", Issuer: "lms-api"})
	require.NoError(t, err)
	foreign, err := other.Issue(&models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	expiredSvc := newTestTokenService(t)
	expiredSvc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredSvc.Issue(&models.User{ID: "u1", Role: models.RoleStudent})
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{
		UserID: "u1",
		Role:   models.RoleAdmin,
		Kind:   models.TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "lms-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parts := strings.Split(pair.AccessToken, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	cases := map[string]struct {
		token string
		kind  models.TokenKind
	}{
		"empty":                {"", models.TokenKindAccess},
		"wrong secret":         {foreign.AccessToken, models.TokenKindAccess},
		"refresh as access":    {pair.RefreshToken, models.TokenKindAccess},
		"access as refresh":    {pair.AccessToken, models.TokenKindRefresh},
		"expired":              {expired.AccessToken, models.TokenKindAccess},
		"alg none":             {noneToken, models.TokenKindAccess},
		"tampered payload":     {tampered, models.TokenKindAccess},
		"not a jwt":            {"abc.def", models.TokenKindAccess},
		"refresh wrong secret": {foreign.RefreshToken, models.TokenKindRefresh},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(tc.token, tc.kind)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
		})
	}
}
