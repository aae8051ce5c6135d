// Package session tracks who is signed in. Store keeps the single local
// session used by the command line; Tokens issue the bearer tokens that HTTP
// clients send with every request.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"workflow/internal/models"
	"workflow/internal/storage"
)

// Store persists the current session across restarts.
type Store struct {
	backend storage.Backend
}

// NewStore binds the session to the current-session collection.
func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

// Get returns the signed-in user, or nil when nobody is signed in.
func (s *Store) Get(ctx context.Context) (*models.User, error) {
	var user models.User
	ok, err := storage.LoadValue(ctx, s.backend, storage.CollectionSession, &user)
	if err != nil || !ok {
		return nil, err
	}
	return &user, nil
}

// Set records user as signed in. A nil user signs out.
func (s *Store) Set(ctx context.Context, user *models.User) error {
	if user == nil {
		return storage.SaveValue(ctx, s.backend, storage.CollectionSession, nil)
	}
	public := user.Public()
	return storage.SaveValue(ctx, s.backend, storage.CollectionSession, &public)
}

// ErrInvalidToken is returned for malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid session token")

// Claims identify the user behind a bearer token.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a token issuer. ttl defaults to 24 hours.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for user.
func (t *Tokens) Issue(user models.User) (string, error) {
	now := t.now()
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the user id it was issued for.
func (t *Tokens) Parse(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
