package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	hive_errors "hivechat/pkg/errors"
)

// AuthService guards a deployment with a single shared API key. Browsers
// cannot set headers on WebSocket upgrades, so the service also mints
// short-lived signed tickets that can ride in a query parameter instead
// of exposing the long-lived key in URLs.
type AuthService struct {
	keyHash []byte
	secret  []byte
	ttl     time.Duration
}

// NewAuthService returns nil when no API key is configured; a nil service
// means the deployment is open (the dev variant).
func NewAuthService(apiKey, ticketSecret string, ttl time.Duration) (*AuthService, error) {
	if apiKey == "" {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if ticketSecret == "" {
		ticketSecret = apiKey
	}
	return &AuthService{
		keyHash: hash,
		secret:  []byte(ticketSecret),
		ttl:     ttl,
	}, nil
}

// CheckKey compares a presented key against the configured one.
func (a *AuthService) CheckKey(key string) error {
	if key == "" {
		return hive_errors.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(a.keyHash, []byte(key)); err != nil {
		return hive_errors.ErrUnauthorized
	}
	return nil
}

// MintTicket issues a short-lived upgrade ticket.
func (a *AuthService) MintTicket() (string, time.Duration, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, a.ttl, nil
}

// ParseTicket validates a minted ticket.
func (a *AuthService) ParseTicket(token string) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, hive_errors.ErrUnauthorized
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return hive_errors.ErrUnauthorized
	}
	return nil
}

// Authorize accepts either the shared key or a valid ticket. Used on
// WebSocket upgrades where the credential arrives as a bare token.
func (a *AuthService) Authorize(token string) error {
	if a.ParseTicket(token) == nil {
		return nil
	}
	return a.CheckKey(token)
}
