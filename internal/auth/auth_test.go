package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alexbotov/alidayu/internal/config"
)

const testSecret = "relay-test-secret-0123456789"

func newTestService() *Service {
	return New(&config.AuthConfig{JWTSecret: testSecret, TokenExpiry: time.Hour})
}

func TestIssueAndValidate(t *testing.T) {
	s := newTestService()

	token, issued, err := s.Issue("billing-service")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if issued.TokenID == "" {
		t.Error("Expected a token id")
	}

	claims, err := s.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.Subject != "billing-service" {
		t.Errorf("Expected subject 'billing-service', got '%s'", claims.Subject)
	}
	if claims.TokenID != issued.TokenID {
		t.Errorf("Expected token id %s, got %s", issued.TokenID, claims.TokenID)
	}
}

func TestValidate_Expired(t *testing.T) {
	s := newTestService()
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := s.Issue("svc")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	s.now = time.Now
	if _, err := s.Validate(token); err != ErrTokenExpired {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	token, _, err := newTestService().Issue("svc")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	other := New(&config.AuthConfig{JWTSecret: "another-secret-0123456789", TokenExpiry: time.Hour})
	if _, err := other.Validate(token); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "svc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Failed to build token: %v", err)
	}

	if _, err := newTestService().Validate(tokenString); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestValidate_Garbage(t *testing.T) {
	if _, err := newTestService().Validate("not.a.token"); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestDisabled(t *testing.T) {
	s := New(&config.AuthConfig{})
	if s.Enabled() {
		t.Error("Expected auth to be disabled without a secret")
	}
	if _, _, err := s.Issue("svc"); err != ErrNoSecret {
		t.Errorf("Expected ErrNoSecret, got %v", err)
	}
	if _, err := s.Validate("x"); err != ErrNoSecret {
		t.Errorf("Expected ErrNoSecret, got %v", err)
	}
}
