package repositories

import (
	"context"

	"github.com/sawaflix/backend/internal/auth"
	"github.com/sawaflix/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// IntegrationRepository defines the data access contract for linked Google accounts.
type IntegrationRepository interface {
	LinkGoogle(ctx context.Context, integration models.GoogleIntegration) error
	FindGoogle(ctx context.Context, userID string) (models.GoogleIntegration, error)
	SaveGoogleToken(ctx context.Context, integration models.GoogleIntegration) error
}

var (
	_ UserRepository        = (*PostgresUserRepository)(nil)
	_ IntegrationRepository = (*PostgresIntegrationRepository)(nil)
	_ auth.SessionStore     = (*PostgresSessionStore)(nil)
	_ auth.SessionStore     = (*RedisSessionStore)(nil)
)
