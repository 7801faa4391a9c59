package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens(t *testing.T) *service.TokenService {
	t.Helper()
	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "lms-api",
	})
	require.NoError(t, err)
	return tokens
}

func issueFor(t *testing.T, tokens *service.TokenService, id string, role models.UserRole) *models.TokenPair {
	t.Helper()
	pair, err := tokens.Issue(&models.User{ID: id, Email: id + "@example.com", Role: role})
	require.NoError(t, err)
	return pair
}

func protectedRouter(tokens *service.TokenService, reached *bool) *gin.Engine {
	r := gin.New()
	admin := r.Group("/admin", Authenticate(tokens), RequireRoles(models.RoleAdmin))
	admin.GET("/users", func(c *gin.Context) {
		*reached = true
		c.Status(http.StatusOK)
	})
	users := r.Group("/users", Authenticate(tokens))
	users.GET("/:id", RBAC(string(models.RoleAdmin), SelfParam), func(c *gin.Context) {
		*reached = true
		c.Status(http.StatusOK)
	})
	r.GET("/whoami", Authenticate(tokens), func(c *gin.Context) {
		*reached = true
		claims, _ := Claims(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":     claims.UserID,
			"role":        claims.Role,
			"header_id":   c.GetHeader("X-User-Id"),
			"header_role": c.GetHeader("X-User-Role"),
		})
	})
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestAuthenticateRejectsBeforeHandler(t *testing.T) {
	tokens := newTokens(t)
	pair := issueFor(t, tokens, "student-1", models.RoleStudent)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID: "admin-1",
		Role:   models.RoleAdmin,
		Kind:   models.TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			Issuer:    "lms-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredToken, err := expired.SignedString([]byte("access-secret"))
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   string
	}{
		{"no header", "", "AUTHENTICATION_REQUIRED"},
		{"empty bearer", "Bearer ", "AUTHENTICATION_REQUIRED"},
		{"wrong scheme", "Basic abc", "AUTHENTICATION_REQUIRED"},
		{"garbage", "Bearer not-a-token", "INVALID_TOKEN"},
		{"expired", "Bearer " + expiredToken, "INVALID_TOKEN"},
		{"refresh as access", "Bearer " + pair.RefreshToken, "INVALID_TOKEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reached := false
			r := protectedRouter(tokens, &reached)
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w))
			assert.False(t, reached)
		})
	}
}

func TestRequireRolesForbidsNonAdmin(t *testing.T) {
	tokens := newTokens(t)
	reached := false
	r := protectedRouter(tokens, &reached)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, "teacher-1", models.RoleTeacher).AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, w))
	assert.False(t, reached)

	req = httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, "admin-1", models.RoleAdmin).AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reached)
}

func TestRBACSelf(t *testing.T) {
	tokens := newTokens(t)
	access := issueFor(t, tokens, "student-1", models.RoleStudent).AccessToken

	for path, status := range map[string]int{"/users/student-1": http.StatusOK, "/users/student-2": http.StatusForbidden} {
		reached := false
		r := protectedRouter(tokens, &reached)
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+access)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, path)
		assert.Equal(t, status == http.StatusOK, reached, path)
	}
}

func TestAuthenticateIgnoresIdentityHeaders(t *testing.T) {
	tokens := newTokens(t)
	reached := false
	r := protectedRouter(tokens, &reached)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("X-User-Id", "admin-1")
	req.Header.Set("X-User-Role", "admin")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, reached)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, "student-1", models.RoleStudent).AccessToken)
	req.Header.Set("X-User-Id", "admin-1")
	req.Header.Set("X-User-Role", "admin")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "student-1", body["user_id"])
	assert.Equal(t, "student", body["role"])
	assert.Empty(t, body["header_id"])
	assert.Empty(t, body["header_role"])
}

func TestOptionalAuthenticate(t *testing.T) {
	tokens := newTokens(t)
	r := gin.New()
	r.GET("/courses", OptionalAuthenticate(tokens), func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, claims.UserID)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses", nil))
	assert.Equal(t, "anonymous", w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set("Authorization", "Bearer junk")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, "student-1", models.RoleStudent).AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "student-1", w.Body.String())
}
