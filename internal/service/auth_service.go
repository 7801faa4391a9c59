package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, id string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type tokenIssuer interface {
	Issue(user *models.User) (*models.TokenPair, error)
	Verify(token string, kind models.TokenKind) (*models.JWTClaims, error)
}

// Auth event labels recorded in metrics.
const (
	authEventRegister = "register"
	authEventLogin    = "login"
	authEventRefresh  = "refresh"
	authEventLogout   = "logout"
)

// AuthService provides registration, login, token refresh and logout.
type AuthService struct {
	repo      authUserRepository
	tokens    tokenIssuer
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	hashCost  int
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, tokens tokenIssuer, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, tokens: tokens, validator: validate, metrics: metrics, logger: logger, hashCost: bcrypt.DefaultCost}
}

// Register creates a student or teacher account.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "full_name, email, password and phone_number are required")
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Bio:          req.Bio,
		Active:       true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.metrics.RecordAuthEvent(authEventRegister, false)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	s.metrics.RecordAuthEvent(authEventRegister, true)

	s.audit(ctx, user.ID, models.AuditActionRegister, `{"role":"`+string(role)+`"}`, models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent})

	info := user.Info()
	return &info, nil
}

// Login authenticates a user and returns issued tokens.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		s.metrics.RecordAuthEvent(authEventLogin, false)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !user.Active {
		s.metrics.RecordAuthEvent(authEventLogin, false)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.RecordAuthEvent(authEventLogin, false)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	pair, err := s.issue(ctx, user, models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent})
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, pair.IssuedAt); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}
	s.metrics.RecordAuthEvent(authEventLogin, true)
	s.audit(ctx, user.ID, models.AuditActionLogin, `{"status":"success"}`, models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent})

	return s.loginResponse(user, pair), nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuthenticationRequired, "refresh token required")
	}

	claims, err := s.tokens.Verify(req.RefreshToken, models.TokenKindRefresh)
	if err != nil {
		s.metrics.RecordAuthEvent(authEventRefresh, false)
		return nil, err
	}

	stored, err := s.repo.FindRefreshToken(ctx, claims.ID)
	if err != nil {
		s.metrics.RecordAuthEvent(authEventRefresh, false)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidToken
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}

	now := time.Now().UTC()
	if !stored.Usable(now) || stored.UserID != claims.UserID {
		s.metrics.RecordAuthEvent(authEventRefresh, false)
		return nil, appErrors.ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		s.metrics.RecordAuthEvent(authEventRefresh, false)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidToken
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		s.metrics.RecordAuthEvent(authEventRefresh, false)
		return nil, appErrors.ErrInvalidToken
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}

	pair, err := s.issue(ctx, user, models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAuthEvent(authEventRefresh, true)
	s.audit(ctx, user.ID, models.AuditActionTokenRefresh, `{"refresh":"rotated"}`, models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent})

	return s.loginResponse(user, pair), nil
}

// Logout revokes the refresh token when one is presented. It never fails on
// a missing or invalid token so clients can always clear their session.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, meta models.RequestMeta) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	claims, err := s.tokens.Verify(refreshToken, models.TokenKindRefresh)
	if err != nil {
		return nil
	}

	if err := s.repo.RevokeRefreshToken(ctx, claims.ID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}
	s.metrics.RecordAuthEvent(authEventLogout, true)
	s.audit(ctx, claims.UserID, models.AuditActionLogout, `{"status":"logout"}`, meta)
	return nil
}

// Me returns the authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, meta models.RequestMeta) (*models.TokenPair, error) {
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tokens")
	}

	if err := s.repo.CreateRefreshToken(ctx, &models.RefreshToken{
		ID:        pair.RefreshID,
		UserID:    user.ID,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: pair.IssuedAt,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}
	return pair, nil
}

func (s *AuthService) loginResponse(user *models.User, pair *models.TokenPair) *models.LoginResponse {
	return &models.LoginResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresIn:        int64(pair.AccessExpiresAt.Sub(pair.IssuedAt).Seconds()),
		IssuedAt:         pair.IssuedAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		User:             user.Info(),
	}
}

func (s *AuthService) audit(ctx context.Context, userID, action, payload string, meta models.RequestMeta) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  []byte(payload),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.String("action", action), zap.Error(err))
	}
}
