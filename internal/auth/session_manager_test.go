package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestManager(store SessionStore, accessTTL, refreshTTL time.Duration) (*Manager, *time.Time) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	manager := NewManager("test-secret", accessTTL, refreshTTL, store)
	manager.WithNowFunc(func() time.Time { return now })
	return manager, &now
}

func TestManagerIssueAndRefresh(t *testing.T) {
	store := NewInMemorySessionStore()
	manager, _ := newTestManager(store, time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), Identity{UserID: "user-1", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}

	identity, err := manager.ParseAccessToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if identity.UserID != "user-1" || identity.Email != "a@b.c" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}
	if _, err := store.Find(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("old token should have been removed, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one live session, got %d", store.Len())
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager, _ := newTestManager(NewInMemorySessionStore(), time.Minute, time.Hour)
	if _, err := manager.Issue(context.Background(), Identity{}); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerParseAccessTokenRejects(t *testing.T) {
	manager, now := newTestManager(NewInMemorySessionStore(), time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewManager("other-secret", time.Minute, time.Hour, NewInMemorySessionStore())
	if _, err := other.ParseAccessToken(tokens.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected invalid token for foreign secret, got %v", err)
	}

	if _, err := manager.ParseAccessToken("not-a-jwt"); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected invalid token for garbage, got %v", err)
	}

	*now = now.Add(2 * time.Minute)
	if _, err := manager.ParseAccessToken(tokens.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected invalid token after expiry, got %v", err)
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager, now := newTestManager(NewInMemorySessionStore(), time.Minute, time.Hour)

	if _, err := manager.Refresh(context.Background(), ""); err != ErrSessionNotFound {
		t.Fatalf("expected session not found got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	*now = now.Add(2 * time.Hour)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrRefreshTokenExpired {
		t.Fatalf("expected refresh expired got %v", err)
	}

	tokens, err = manager.Issue(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := manager.Revoke(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := manager.Revoke(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("second revoke should be a no-op, got %v", err)
	}
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrSessionNotFound {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
}

func TestManagerRefreshReplayWithinGrace(t *testing.T) {
	store := NewInMemorySessionStore()
	manager, now := newTestManager(store, time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	first, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	second, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("replayed refresh: %v", err)
	}
	if second.RefreshToken != first.RefreshToken || second.AccessToken != first.AccessToken {
		t.Fatal("replay within grace must return the same successor pair")
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one live session, got %d", store.Len())
	}

	*now = now.Add(rotationGrace)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found after grace got %v", err)
	}
}

func TestManagerRefreshConcurrentSharesRotation(t *testing.T) {
	store := NewInMemorySessionStore()
	manager, _ := newTestManager(store, time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const callers = 8
	results := make(chan string, callers)
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rotated, err := manager.Refresh(context.Background(), tokens.RefreshToken)
			if err != nil {
				errs <- err
				return
			}
			results <- rotated.RefreshToken
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent refresh failed: %v", err)
	}
	var successor string
	for token := range results {
		if successor == "" {
			successor = token
		}
		if token != successor {
			t.Fatal("concurrent callers received different successors")
		}
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one live session, got %d", store.Len())
	}
}

func TestManagerRevokeForgetsRotation(t *testing.T) {
	manager, _ := newTestManager(NewInMemorySessionStore(), time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rotated, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := manager.Revoke(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("logout must also end the grace window, got %v", err)
	}
}
