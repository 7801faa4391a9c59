package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// RegisterRequest is the self-service sign up payload.
type RegisterRequest struct {
	FullName    string   `json:"full_name" validate:"required,max=120"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=6"`
	PhoneNumber string   `json:"phone_number" validate:"required,max=32"`
	Role        UserRole `json:"role" validate:"omitempty,oneof=student teacher"`
	Bio         string   `json:"bio" validate:"max=2000"`
	IP          string   `json:"-"`
	UserAgent   string   `json:"-"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	ExpiresIn        int64     `json:"expires_in"`
	User             UserInfo  `json:"user"`
	IssuedAt         time.Time `json:"issued_at"`
	RefreshExpiresAt time.Time `json:"-"`
}

// RefreshTokenRequest exchanges a refresh token for a new token pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for both token kinds. Refresh tokens
// carry no role; their registered ID links to the refresh_tokens row.
type JWTClaims struct {
	UserID string    `json:"user_id"`
	Role   UserRole  `json:"role,omitempty"`
	Kind   TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is the result of issuing credentials for a user.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshID        string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	IssuedAt         time.Time
}
