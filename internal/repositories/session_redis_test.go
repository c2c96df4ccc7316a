package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawaflix/backend/internal/auth"
)

func TestRedisSessionStoreValidation(t *testing.T) {
	store := NewRedisSessionStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))

	err := store.Save(context.Background(), auth.Session{UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)})
	assert.Error(t, err, "missing refresh token")

	err = store.Save(context.Background(), auth.Session{RefreshToken: "rt", UserID: "u-1", ExpiresAt: time.Now().Add(-time.Second)})
	assert.Error(t, err, "already expired")
}

func TestRedisSessionStoreLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisSessionStore(client)
	session := auth.Session{
		RefreshToken: "rt-" + time.Now().Format("150405.000000"),
		UserID:       "u-1",
		Email:        "u1@example.com",
		ExpiresAt:    time.Now().Add(time.Minute).UTC().Truncate(time.Second),
	}

	require.NoError(t, store.Save(ctx, session))

	found, err := store.Find(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, found.UserID)
	assert.Equal(t, session.Email, found.Email)
	assert.True(t, session.ExpiresAt.Equal(found.ExpiresAt))

	ttl := mr.TTL(store.key(session.RefreshToken))
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	// The key lapses with the session.
	mr.FastForward(2 * time.Minute)
	_, err = store.Find(ctx, session.RefreshToken)
	assert.True(t, errors.Is(err, auth.ErrSessionNotFound))

	require.NoError(t, store.Save(ctx, session))

	require.NoError(t, store.Delete(ctx, session.RefreshToken))
	_, err = store.Find(ctx, session.RefreshToken)
	assert.True(t, errors.Is(err, auth.ErrSessionNotFound))
	assert.True(t, errors.Is(store.Delete(ctx, session.RefreshToken), auth.ErrSessionNotFound))
}
