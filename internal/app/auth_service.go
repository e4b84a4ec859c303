package app

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"secondbrain/internal/pkg/jwtutil"
)

const ownerSubject = "owner"

// AuthService guards a single-owner knowledge base with one bcrypt password.
type AuthService struct {
	enabled       bool
	passwordHash  string
	jwtSecret     string
	jwtExpiration time.Duration
}

type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewAuthService(enabled bool, passwordHash, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	if jwtExpiration <= 0 {
		jwtExpiration = 12 * time.Hour
	}
	return &AuthService{
		enabled:       enabled,
		passwordHash:  strings.TrimSpace(passwordHash),
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (s *AuthService) Enabled() bool {
	return s.enabled
}

func (s *AuthService) Login(password string) (*AuthResult, error) {
	if !s.enabled {
		return nil, ErrAuthDisabled
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if s.passwordHash == "" {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	token, expiresAt, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, ownerSubject)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt}, nil
}

// HashPassword produces the value expected in auth.password_hash.
func HashPassword(password string) (string, error) {
	if len(strings.TrimSpace(password)) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password failed: %w", err)
	}
	return string(hash), nil
}
