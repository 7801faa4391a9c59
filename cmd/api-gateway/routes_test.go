package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *service.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	r := gin.New()
	registerRoutes(r, routeConfig{
		Prefix:      "/api",
		Tokens:      tokens,
		Auth:        handler.NewAuthHandler(nil, handler.CookieOptions{}),
		Users:       handler.NewUserHandler(nil),
		Courses:     handler.NewCourseHandler(nil),
		Lectures:    handler.NewLectureHandler(nil),
		Quizzes:     handler.NewQuizHandler(nil),
		Attempts:    handler.NewQuizAttemptHandler(nil),
		Enrollments: handler.NewEnrollmentHandler(nil),
		Attendance:  handler.NewAttendanceHandler(nil),
		Ops:         handler.NewMetricsHandler(nil, nil),
	})
	return r, tokens
}

func bearer(t *testing.T, tokens *service.TokenService, role models.UserRole) string {
	t.Helper()
	pair, err := tokens.Issue(&models.User{ID: string(role) + "-1", Role: role})
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func TestRoutesGateProtectedEndpoints(t *testing.T) {
	r, tokens := newTestRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		auth   string
		status int
	}{
		{"admin list anonymous", http.MethodGet, "/api/users", "", http.StatusUnauthorized},
		{"admin list as student", http.MethodGet, "/api/users", bearer(t, tokens, models.RoleStudent), http.StatusForbidden},
		{"all courses as teacher", http.MethodGet, "/api/course/all", bearer(t, tokens, models.RoleTeacher), http.StatusForbidden},
		{"delete user as teacher", http.MethodDelete, "/api/users/student-1", bearer(t, tokens, models.RoleTeacher), http.StatusForbidden},
		{"other user profile", http.MethodGet, "/api/users/someone-else", bearer(t, tokens, models.RoleStudent), http.StatusForbidden},
		{"create course as student", http.MethodPost, "/api/course", bearer(t, tokens, models.RoleStudent), http.StatusForbidden},
		{"submit anonymous", http.MethodPost, "/api/quiz-attempt/submit", "", http.StatusUnauthorized},
		{"me with junk token", http.MethodGet, "/api/auth/me", "Bearer junk", http.StatusUnauthorized},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
