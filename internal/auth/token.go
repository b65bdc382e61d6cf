package auth

import (
	"errors"
	"fmt"
	"time"

	"commauth/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A reset token is a narrow capability for completing one
// password reset; it never doubles as a session.
const (
	purposeSession = "session"
	purposeReset   = "reset"
)

// TokenManager issues and validates the explicit capability tokens that
// replace ambient session state: a session token after login, and a
// short-lived reset token after a verified recovery code.
type TokenManager struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
}

// NewTokenManager creates a token manager from the auth configuration.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		sessionTTL: cfg.SessionTokenTTL,
		resetTTL:   cfg.ResetTokenTTL,
	}
}

// IssueSession generates a session token for an authenticated username.
func (t *TokenManager) IssueSession(username string) (string, error) {
	return t.issue(username, purposeSession, t.sessionTTL)
}

// IssueReset generates a reset capability token for a username whose
// recovery code was just verified.
func (t *TokenManager) IssueReset(username string) (string, error) {
	return t.issue(username, purposeReset, t.resetTTL)
}

func (t *TokenManager) issue(username, purpose string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":     username,
		"purpose": purpose,
		"exp":     time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ParseSession validates a session token and returns the username.
func (t *TokenManager) ParseSession(tokenString string) (string, error) {
	return t.parse(tokenString, purposeSession)
}

// ParseReset validates a reset capability token and returns the username.
func (t *TokenManager) ParseReset(tokenString string) (string, error) {
	return t.parse(tokenString, purposeReset)
}

func (t *TokenManager) parse(tokenString, purpose string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	if p, _ := claims["purpose"].(string); p != purpose {
		return "", ErrInvalidToken
	}

	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return username, nil
}
