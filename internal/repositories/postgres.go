package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sawaflix/backend/internal/db"
	"github.com/sawaflix/backend/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, user.ID, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "email", email)
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, column, value string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is one of two literals above, never caller input.
	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at, updated_at
        FROM users
        WHERE `+column+` = $1
    `, value)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by %s: %w", column, err)
	}

	return user, nil
}

// PostgresIntegrationRepository stores linked Google credentials on the
// profiles table.
type PostgresIntegrationRepository struct {
	pool db.Pool
}

func NewPostgresIntegrationRepository(pool db.Pool) *PostgresIntegrationRepository {
	return &PostgresIntegrationRepository{pool: pool}
}

// LinkGoogle creates or replaces the user's Google credentials.
func (r *PostgresIntegrationRepository) LinkGoogle(ctx context.Context, integration models.GoogleIntegration) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO profiles (user_id, google_access_token, google_refresh_token, google_token_expires_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id)
        DO UPDATE SET google_access_token = EXCLUDED.google_access_token,
                      google_refresh_token = EXCLUDED.google_refresh_token,
                      google_token_expires_at = EXCLUDED.google_token_expires_at,
                      updated_at = EXCLUDED.updated_at
    `, integration.UserID, integration.AccessToken, integration.RefreshToken, utcPtr(integration.ExpiresAt), integration.UpdatedAt.UTC())
	if err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return ErrNotFound
		}
		return fmt.Errorf("upsert google integration: %w", err)
	}
	return nil
}

// FindGoogle loads the user's Google credentials. Rows without a refresh
// token have not been linked and are reported as ErrNotFound.
func (r *PostgresIntegrationRepository) FindGoogle(ctx context.Context, userID string) (models.GoogleIntegration, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.GoogleIntegration{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT user_id, COALESCE(google_access_token, ''), google_refresh_token, google_token_expires_at, updated_at
        FROM profiles
        WHERE user_id = $1 AND google_refresh_token IS NOT NULL
    `, userID)

	var (
		integration models.GoogleIntegration
		expiresAt   *time.Time
	)
	if err := row.Scan(&integration.UserID, &integration.AccessToken, &integration.RefreshToken, &expiresAt, &integration.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.GoogleIntegration{}, ErrNotFound
		}
		return models.GoogleIntegration{}, fmt.Errorf("select google integration: %w", err)
	}

	integration.UpdatedAt = integration.UpdatedAt.UTC()
	integration.ExpiresAt = utcPtr(expiresAt)
	return integration, nil
}

// SaveGoogleToken records a refreshed access token on an existing row.
func (r *PostgresIntegrationRepository) SaveGoogleToken(ctx context.Context, integration models.GoogleIntegration) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE profiles
        SET google_access_token = $2,
            google_refresh_token = $3,
            google_token_expires_at = $4,
            updated_at = $5
        WHERE user_id = $1
    `, integration.UserID, integration.AccessToken, integration.RefreshToken, utcPtr(integration.ExpiresAt), integration.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("update google token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
