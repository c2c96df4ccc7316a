package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	err error
}

func (f failingStore) Save(context.Context, Session) error { return f.err }

func (f failingStore) Find(context.Context, string) (Session, error) { return Session{}, f.err }

func (f failingStore) Delete(context.Context, string) error { return f.err }

func TestCookieProviderResolve(t *testing.T) {
	opts := CookieOptions{AccessName: "acc", RefreshName: "ref"}

	t.Run("anonymous", func(t *testing.T) {
		manager, _ := newTestManager(NewInMemorySessionStore(), time.Minute, time.Hour)
		provider := NewCookieProvider(manager, opts)

		identity, cookies, err := provider.Resolve(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, identity)
		assert.Empty(t, cookies)
	})

	t.Run("valid access cookie", func(t *testing.T) {
		manager, _ := newTestManager(NewInMemorySessionStore(), time.Minute, time.Hour)
		provider := NewCookieProvider(manager, opts)
		tokens, err := manager.Issue(context.Background(), Identity{UserID: "u-1", Email: "u@x.io"})
		require.NoError(t, err)

		identity, cookies, err := provider.Resolve(context.Background(), []*http.Cookie{
			{Name: "acc", Value: tokens.AccessToken},
		})
		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, "u-1", identity.UserID)
		assert.Empty(t, cookies, "no rotation when the access token is valid")
	})

	t.Run("expired access rotates refresh", func(t *testing.T) {
		store := NewInMemorySessionStore()
		manager, now := newTestManager(store, time.Minute, time.Hour)
		provider := NewCookieProvider(manager, opts)
		tokens, err := manager.Issue(context.Background(), Identity{UserID: "u-2"})
		require.NoError(t, err)

		*now = now.Add(5 * time.Minute)

		identity, cookies, err := provider.Resolve(context.Background(), []*http.Cookie{
			{Name: "acc", Value: tokens.AccessToken},
			{Name: "ref", Value: tokens.RefreshToken},
		})
		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, "u-2", identity.UserID)
		require.Len(t, cookies, 2)
		assert.Equal(t, "acc", cookies[0].Name)
		assert.Equal(t, "ref", cookies[1].Name)
		assert.NotEqual(t, tokens.RefreshToken, cookies[1].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("same refresh cookie resolved twice", func(t *testing.T) {
		store := NewInMemorySessionStore()
		manager, now := newTestManager(store, time.Minute, time.Hour)
		provider := NewCookieProvider(manager, opts)
		tokens, err := manager.Issue(context.Background(), Identity{UserID: "u-3"})
		require.NoError(t, err)

		*now = now.Add(5 * time.Minute)
		stale := []*http.Cookie{
			{Name: "acc", Value: tokens.AccessToken},
			{Name: "ref", Value: tokens.RefreshToken},
		}

		first, firstCookies, err := provider.Resolve(context.Background(), stale)
		require.NoError(t, err)
		second, secondCookies, err := provider.Resolve(context.Background(), stale)
		require.NoError(t, err)

		require.NotNil(t, first)
		require.NotNil(t, second)
		assert.Equal(t, "u-3", second.UserID)
		require.Len(t, secondCookies, 2)
		for i := range secondCookies {
			assert.Equal(t, firstCookies[i].Value, secondCookies[i].Value)
			assert.GreaterOrEqual(t, secondCookies[i].MaxAge, 0, "parallel request must not clear the session")
		}
	})

	t.Run("unknown refresh clears cookies", func(t *testing.T) {
		manager, _ := newTestManager(NewInMemorySessionStore(), time.Minute, time.Hour)
		provider := NewCookieProvider(manager, opts)

		identity, cookies, err := provider.Resolve(context.Background(), []*http.Cookie{
			{Name: "ref", Value: "nope"},
		})
		require.NoError(t, err)
		assert.Nil(t, identity)
		require.Len(t, cookies, 2)
		assert.Equal(t, -1, cookies[0].MaxAge)
		assert.Equal(t, -1, cookies[1].MaxAge)
	})

	t.Run("store failure is an error", func(t *testing.T) {
		manager, _ := newTestManager(failingStore{err: errors.New("redis down")}, time.Minute, time.Hour)
		provider := NewCookieProvider(manager, opts)

		identity, _, err := provider.Resolve(context.Background(), []*http.Cookie{
			{Name: "ref", Value: "anything"},
		})
		require.Error(t, err)
		assert.Nil(t, identity)
	})
}

func TestIdentityFromContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u-9"})
	identity, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u-9", identity.UserID)
}
