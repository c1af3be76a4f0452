// Package auth issues and validates the bearer tokens that protect the relay API
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alexbotov/alidayu/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrNoSecret     = errors.New("relay authentication is not configured")
)

// Claims identifies the relay caller
type Claims struct {
	Subject string
	TokenID string
	Expires time.Time
}

// Service provides token functionality
type Service struct {
	config *config.AuthConfig
	now    func() time.Time
}

// New creates a new auth service
func New(cfg *config.AuthConfig) *Service {
	return &Service{config: cfg, now: time.Now}
}

// Enabled reports whether a signing secret is configured
func (s *Service) Enabled() bool {
	return s.config.JWTSecret != ""
}

// Issue creates a signed HS256 token for subject
func (s *Service) Issue(subject string) (string, *Claims, error) {
	if !s.Enabled() {
		return "", nil, ErrNoSecret
	}
	if subject == "" {
		return "", nil, errors.New("subject is required")
	}

	now := s.now().UTC()
	claims := &Claims{
		Subject: subject,
		TokenID: uuid.New().String(),
		Expires: now.Add(s.config.TokenExpiry),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.Subject,
		ID:        claims.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(claims.Expires),
	})

	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, claims, nil
}

// Validate parses a token and returns its claims
func (s *Service) Validate(tokenString string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrNoSecret
	}

	var registered jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &registered, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || registered.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Subject: registered.Subject,
		TokenID: registered.ID,
		Expires: registered.ExpiresAt.Time,
	}, nil
}
