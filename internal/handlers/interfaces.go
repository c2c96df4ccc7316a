package handlers

import (
	"context"

	"github.com/sawaflix/backend/internal/auth"
	"github.com/sawaflix/backend/internal/models"
	"github.com/sawaflix/backend/internal/videos"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionManager issues and revokes session tokens.
type SessionManager interface {
	Issue(ctx context.Context, identity auth.Identity) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// VideoFeed assembles pages of the video feed.
type VideoFeed interface {
	Fetch(ctx context.Context, query, pageToken string) (videos.Page, error)
}

// TokenProvider returns a usable Google access token for a user.
type TokenProvider interface {
	GetValidToken(ctx context.Context, userID string) (string, error)
}

// IntegrationLinker stores Google credentials when a user links their account.
type IntegrationLinker interface {
	LinkGoogle(ctx context.Context, integration models.GoogleIntegration) error
}
