package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sawaflix/backend/internal/config"
	"github.com/sawaflix/backend/internal/handlers"
	"github.com/sawaflix/backend/internal/videos"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	return cfg
}

func TestBuildDependencies(t *testing.T) {
	cfg := testConfig()
	cfg.YouTube.APIKey = "test-key"

	built, err := buildDependencies(context.Background(), discardLogger(), fakePool{}, nil, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deps := built.deps
	if deps.Users == nil {
		t.Fatal("expected user repository to be configured")
	}
	if deps.Sessions == nil {
		t.Fatal("expected session manager to be configured")
	}
	if deps.Videos == nil {
		t.Fatal("expected video feed to be configured")
	}
	if deps.Integrations == nil || deps.GoogleLinks == nil {
		t.Fatal("expected google integration to be configured")
	}
	if deps.FeedLimiter == nil {
		t.Fatal("expected feed limiter to be configured")
	}
	if deps.Cookies.AccessName != "sawaflix_access" {
		t.Fatalf("unexpected access cookie name %q", deps.Cookies.AccessName)
	}
	if built.gate == nil {
		t.Fatal("expected session gate to be configured")
	}
}

func TestBuildDependenciesWithoutAPIKeyDisablesFeed(t *testing.T) {
	built, err := buildDependencies(context.Background(), discardLogger(), fakePool{}, nil, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := built.deps.Videos.Fetch(context.Background(), "", ""); !errors.Is(err, videos.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable got %v", err)
	}
}

func TestBuildDependenciesRejectsBadRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Routes.Precedence = "sideways"

	if _, err := buildDependencies(context.Background(), discardLogger(), fakePool{}, nil, cfg); err == nil {
		t.Fatal("expected invalid precedence to fail")
	}
}

func TestGateGuardsRegisteredRoutes(t *testing.T) {
	built, err := buildDependencies(context.Background(), discardLogger(), fakePool{}, nil, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, built.deps)
	handler := built.gate.Handler(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected anonymous login page got %d", rec.Code)
	}
}

func TestBuildDependenciesRequiresSessionSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Secret = ""

	if _, err := buildDependencies(context.Background(), discardLogger(), fakePool{}, nil, cfg); err == nil {
		t.Fatal("expected missing session secret to fail")
	}
}
