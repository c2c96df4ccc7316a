package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sawaflix/backend/internal/auth"
	"github.com/sawaflix/backend/internal/config"
	"github.com/sawaflix/backend/internal/db"
	"github.com/sawaflix/backend/internal/handlers"
	"github.com/sawaflix/backend/internal/integrations"
	"github.com/sawaflix/backend/internal/middleware"
	"github.com/sawaflix/backend/internal/repositories"
	"github.com/sawaflix/backend/internal/videos"
)

// components is everything serve needs besides the server itself.
type components struct {
	deps handlers.Dependencies
	gate *middleware.Gate
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers and the session gate. rdb may be nil.
func buildDependencies(ctx context.Context, logger *slog.Logger, pool db.Pool, rdb *redis.Client, cfg config.Config) (components, error) {
	if err := cfg.Validate(); err != nil {
		return components{}, err
	}

	var sessionStore auth.SessionStore = repositories.NewPostgresSessionStore(pool)
	if rdb != nil {
		sessionStore = repositories.NewRedisSessionStore(rdb)
	}

	manager := auth.NewManager(cfg.Session.Secret, cfg.Session.AccessTTL, cfg.Session.RefreshTTL, sessionStore)
	provider := auth.NewCookieProvider(manager, auth.CookieOptions{
		AccessName:  cfg.Session.AccessCookie,
		RefreshName: cfg.Session.RefreshCookie,
		Secure:      cfg.Session.Secure,
	})

	routes, err := middleware.RouteTableFromConfig(cfg.Routes)
	if err != nil {
		return components{}, fmt.Errorf("build route table: %w", err)
	}

	feed, err := buildVideoFeed(ctx, logger, rdb, cfg.YouTube)
	if err != nil {
		return components{}, err
	}

	integrationRepo := repositories.NewPostgresIntegrationRepository(pool)
	if cfg.Google.ClientID == "" {
		logger.Warn("google oauth client not configured, token refreshes will fail")
	}
	refresher := integrations.NewRefresher(
		integrationRepo,
		integrations.NewGoogleOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.TokenURL),
		integrations.Options{FreshnessWindow: cfg.Google.FreshnessWindow, ExpirySkew: cfg.Google.ExpirySkew},
	)

	limiter := middleware.NewKeyedLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, 0)

	return components{
		deps: handlers.Dependencies{
			Users:        repositories.NewPostgresUserRepository(pool),
			Sessions:     manager,
			Cookies:      provider.Cookies(),
			Videos:       feed,
			Integrations: refresher,
			GoogleLinks:  integrationRepo,
			FeedLimiter:  limiter,
		},
		gate: middleware.NewGate(provider, routes),
	}, nil
}

func buildVideoFeed(ctx context.Context, logger *slog.Logger, rdb *redis.Client, cfg config.YouTubeConfig) (*videos.Aggregator, error) {
	opts := videos.Options{
		RegionCode:        cfg.RegionCode,
		RelevanceLanguage: cfg.RelevanceLanguage,
		DefaultQuery:      cfg.DefaultQuery,
		PageSize:          int64(cfg.PageSize),
	}

	if cfg.APIKey == "" {
		logger.Warn("youtube api key not configured, video feed disabled")
		return videos.NewAggregator(nil, nil, opts), nil
	}

	client, err := videos.NewDataAPIClient(ctx, cfg.APIKey, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	search := videos.NewCachingSearcher(client, cfg.SearchCacheTTL, rdb)
	return videos.NewAggregator(search, client, opts), nil
}
