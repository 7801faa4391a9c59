package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type authServiceMock struct {
	loginErr    error
	refreshedBy string
	loggedOut   string
	registerReq models.RegisterRequest
}

func (m *authServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	m.registerReq = req
	return &models.UserInfo{ID: "user-1", Email: req.Email, FullName: req.FullName, Role: models.RoleStudent}, nil
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return session(), nil
}

func (m *authServiceMock) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.LoginResponse, error) {
	m.refreshedBy = req.RefreshToken
	return session(), nil
}

func (m *authServiceMock) Logout(ctx context.Context, refreshToken string, meta models.RequestMeta) error {
	m.loggedOut = refreshToken
	return nil
}

func (m *authServiceMock) Me(ctx context.Context, userID string) (*models.User, error) {
	return &models.User{ID: userID, Email: "ann@example.com", PasswordHash: "secret-hash", Role: models.RoleStudent}, nil
}

func session() *models.LoginResponse {
	return &models.LoginResponse{
		AccessToken:      "access.jwt",
		RefreshToken:     "refresh.jwt",
		ExpiresIn:        900,
		User:             models.UserInfo{ID: "user-1", Role: models.RoleStudent},
		IssuedAt:         time.Now(),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, ck := range w.Result().Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func TestAuthHandlerLoginSetsCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{}, CookieOptions{Secure: true})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/auth/login", models.LoginRequest{Email: "ann@example.com", Password: "secret1"})

	handler.Login(c)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := cookiesByName(w)
	require.Contains(t, cookies, "accessToken")
	require.Contains(t, cookies, "refreshToken")
	assert.True(t, cookies["accessToken"].HttpOnly)
	assert.True(t, cookies["refreshToken"].Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookies["refreshToken"].SameSite)
	assert.Equal(t, "refresh.jwt", cookies["refreshToken"].Value)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "access.jwt", body.Data["access_token"])
	assert.NotContains(t, body.Data, "refresh_token")
}

func TestAuthHandlerLoginFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials}, CookieOptions{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/auth/login", models.LoginRequest{Email: "ann@example.com", Password: "nope"})
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerRefreshPrefersCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc, CookieOptions{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := jsonRequest(http.MethodPost, "/auth/refresh", models.RefreshTokenRequest{RefreshToken: "from-body"})
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "from-cookie"})
	c.Request = req
	handler.Refresh(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "from-cookie", svc.refreshedBy)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/auth/refresh", models.RefreshTokenRequest{RefreshToken: "from-body"})
	handler.Refresh(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "from-body", svc.refreshedBy)
}

func TestAuthHandlerLogoutClearsCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc, CookieOptions{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "refresh.jwt"})
	c.Request = req
	handler.Logout(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "refresh.jwt", svc.loggedOut)
	cookies := cookiesByName(w)
	require.Contains(t, cookies, "accessToken")
	assert.Equal(t, "", cookies["accessToken"].Value)
	assert.True(t, cookies["refreshToken"].MaxAge < 0)
}

func TestAuthHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{}, CookieOptions{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
	assert.NotContains(t, w.Body.String(), "secret-hash")
}

func TestAuthHandlerRegisterCapturesClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc, CookieOptions{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := jsonRequest(http.MethodPost, "/auth/register", models.RegisterRequest{FullName: "Ann", Email: "ann@example.com", Password: "secret1", PhoneNumber: "123"})
	req.Header.Set("User-Agent", "lms-test")
	c.Request = req
	handler.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "lms-test", svc.registerReq.UserAgent)
	assert.Equal(t, "ann@example.com", svc.registerReq.Email)
}
