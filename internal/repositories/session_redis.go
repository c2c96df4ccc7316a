package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawaflix/backend/internal/auth"
)

// RedisSessionStore keeps refresh sessions in Redis with a TTL matching their
// expiry, so expired sessions disappear without a sweeper.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: "sawaflix:session:"}
}

func (s *RedisSessionStore) key(refreshToken string) string {
	return s.prefix + refreshToken
}

func (s *RedisSessionStore) Save(ctx context.Context, session auth.Session) error {
	if session.RefreshToken == "" || session.UserID == "" {
		return fmt.Errorf("session: missing refresh token or user id")
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	return s.client.Set(ctx, s.key(session.RefreshToken), data, ttl).Err()
}

func (s *RedisSessionStore) Find(ctx context.Context, refreshToken string) (auth.Session, error) {
	data, err := s.client.Get(ctx, s.key(refreshToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	if err != nil {
		return auth.Session{}, fmt.Errorf("session: get: %w", err)
	}

	var session auth.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return auth.Session{}, fmt.Errorf("session: unmarshal: %w", err)
	}
	return session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, refreshToken string) error {
	removed, err := s.client.Del(ctx, s.key(refreshToken)).Result()
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	if removed == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}
