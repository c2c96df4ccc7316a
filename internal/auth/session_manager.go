package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/sawaflix/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the provided refresh token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrInvalidAccessToken covers malformed, forged and expired access tokens.
	ErrInvalidAccessToken = errors.New("invalid access token")
)

// SessionStore persists issued refresh tokens so they can survive process restarts.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, refreshToken string) (Session, error)
	Delete(ctx context.Context, refreshToken string) error
}

// Session represents a refresh token issued to a user.
type Session struct {
	RefreshToken string    `json:"refreshToken"`
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// rotationGrace is how long a rotated refresh token keeps resolving to its
// successor. Browsers send parallel requests with the same stale cookie.
const rotationGrace = 10 * time.Second

type rotation struct {
	tokens  models.SessionTokens
	expires time.Time
}

type accessClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues signed access tokens and store-backed refresh tokens.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	store SessionStore

	flights singleflight.Group
	mu      sync.Mutex
	rotated map[string]rotation
}

// NewManager constructs a Manager that signs access tokens with secret (HS256).
func NewManager(secret string, accessTTL, refreshTTL time.Duration, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
		store:      store,
		rotated:    make(map[string]rotation),
	}
}

// WithNowFunc allows tests to override the time source.
func (m *Manager) WithNowFunc(now func() time.Time) {
	m.now = now
}

// Issue creates a new access/refresh pair for the identity.
func (m *Manager) Issue(ctx context.Context, identity Identity) (models.SessionTokens, error) {
	if identity.UserID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now()
	accessExpires := now.Add(m.accessTTL)

	claims := accessClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpires),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	tokens := models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	if err := m.store.Save(ctx, Session{
		RefreshToken: refreshToken,
		UserID:       identity.UserID,
		Email:        identity.Email,
		ExpiresAt:    tokens.RefreshExpiresAt,
	}); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// ParseAccessToken verifies the signature and expiry of an access token.
func (m *Manager) ParseAccessToken(token string) (Identity, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidAccessToken)
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Refresh rotates a refresh token into a new session token pair. Concurrent
// calls with the same token share one rotation, and for rotationGrace after it
// the old token yields the same successor pair instead of ErrSessionNotFound.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}
	if tokens, ok := m.successor(refreshToken); ok {
		return tokens, nil
	}

	v, err, _ := m.flights.Do(refreshToken, func() (any, error) {
		if tokens, ok := m.successor(refreshToken); ok {
			return tokens, nil
		}
		tokens, err := m.rotate(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.rotated[refreshToken] = rotation{tokens: tokens, expires: m.now().Add(rotationGrace)}
		m.mu.Unlock()
		return tokens, nil
	})
	if err != nil {
		return models.SessionTokens{}, err
	}
	return v.(models.SessionTokens), nil
}

func (m *Manager) rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	session, err := m.store.Find(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if m.now().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, refreshToken)
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}

	if err := m.store.Delete(ctx, refreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return m.Issue(ctx, Identity{UserID: session.UserID, Email: session.Email})
}

// successor returns the pair a recently rotated token was exchanged for and
// drops lapsed entries.
func (m *Manager) successor(refreshToken string) (models.SessionTokens, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for token, r := range m.rotated {
		if !now.Before(r.expires) {
			delete(m.rotated, token)
		}
	}
	r, ok := m.rotated[refreshToken]
	return r.tokens, ok
}

// Revoke removes the refresh token from the store. Unknown tokens are not an
// error. Rotations leading to the token are forgotten too.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	m.mu.Lock()
	for token, r := range m.rotated {
		if token == refreshToken || r.tokens.RefreshToken == refreshToken {
			delete(m.rotated, token)
		}
	}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, refreshToken); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
