package integrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"github.com/sawaflix/backend/internal/logging"
	"github.com/sawaflix/backend/internal/models"
	"github.com/sawaflix/backend/internal/repositories"
	"github.com/sawaflix/backend/internal/upstream"
)

const (
	serviceName    = "google-oauth"
	refreshTimeout = 15 * time.Second
)

// ErrNotFound indicates the user has not linked a Google account.
var ErrNotFound = errors.New("google integration not found")

// IntegrationStore reads and updates the per-user Google credential row.
// FindGoogle returns repositories.ErrNotFound when the row is missing.
type IntegrationStore interface {
	FindGoogle(ctx context.Context, userID string) (models.GoogleIntegration, error)
	SaveGoogleToken(ctx context.Context, integration models.GoogleIntegration) error
}

// Options tunes when a stored token is considered fresh.
type Options struct {
	// FreshnessWindow is how long after updated_at a token is reused.
	FreshnessWindow time.Duration
	// ExpirySkew is the margin kept before a provider-reported expiry.
	ExpirySkew time.Duration
}

// NewGoogleOAuthConfig returns the client used for refresh_token grants. The
// client credentials are sent as form fields. tokenURL may be empty.
func NewGoogleOAuthConfig(clientID, clientSecret, tokenURL string) *oauth2.Config {
	endpoint := google.Endpoint
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
	}
}

// Refresher hands out usable Google access tokens, refreshing stale ones.
// Concurrent refreshes for the same user share one token request and one write.
type Refresher struct {
	store  IntegrationStore
	oauth  *oauth2.Config
	window time.Duration
	skew   time.Duration
	now    func() time.Time

	group singleflight.Group
}

func NewRefresher(store IntegrationStore, oauthCfg *oauth2.Config, opts Options) *Refresher {
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = 50 * time.Minute
	}
	if opts.ExpirySkew < 0 {
		opts.ExpirySkew = 0
	}
	return &Refresher{
		store:  store,
		oauth:  oauthCfg,
		window: opts.FreshnessWindow,
		skew:   opts.ExpirySkew,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc allows tests to override the time source.
func (r *Refresher) WithNowFunc(now func() time.Time) {
	r.now = now
}

// GetValidToken returns an access token for userID that is safe to use now.
// A fresh stored token is returned without contacting Google. A stale one is
// refreshed and persisted before it is returned.
func (r *Refresher) GetValidToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id must be provided")
	}

	row, err := r.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if r.fresh(row) {
		return row.AccessToken, nil
	}

	result := r.group.DoChan(userID, func() (any, error) {
		// Detached so one caller cancelling does not fail the others sharing this flight.
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return r.refresh(flightCtx, userID)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			logging.FromContext(ctx).Debug("joined in-flight token refresh", "user_id", userID)
		}
		return res.Val.(string), nil
	}
}

func (r *Refresher) refresh(ctx context.Context, userID string) (string, error) {
	ctx, span := logging.StartSpan(ctx, "integrations.refresh", "user_id", userID)
	defer span.End()

	// A flight that finished just before this one started may already have
	// written a fresh token.
	row, err := r.load(ctx, userID)
	if err != nil {
		span.Fail(err)
		return "", err
	}
	if r.fresh(row) {
		return row.AccessToken, nil
	}

	if row.RefreshToken == "" {
		err := &upstream.Error{Service: serviceName, Op: "refresh", Message: "no refresh token on file"}
		span.Fail(err)
		return "", err
	}

	tok, err := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: row.RefreshToken}).Token()
	if err != nil {
		err = toUpstreamError(err)
		span.Fail(err)
		return "", err
	}

	updated := models.GoogleIntegration{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: row.RefreshToken,
		UpdatedAt:    r.now(),
	}
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		updated.ExpiresAt = &expiry
	}

	if err := r.store.SaveGoogleToken(ctx, updated); err != nil {
		err = fmt.Errorf("persist refreshed token: %w", err)
		span.Fail(err)
		return "", err
	}

	logging.FromContext(ctx).Info("google access token refreshed", "rotated_refresh_token", updated.RefreshToken != row.RefreshToken)
	return updated.AccessToken, nil
}

func (r *Refresher) load(ctx context.Context, userID string) (models.GoogleIntegration, error) {
	row, err := r.store.FindGoogle(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.GoogleIntegration{}, ErrNotFound
	}
	if err != nil {
		return models.GoogleIntegration{}, fmt.Errorf("load google integration: %w", err)
	}
	return row, nil
}

func (r *Refresher) fresh(row models.GoogleIntegration) bool {
	if row.AccessToken == "" {
		return false
	}
	now := r.now()
	if now.Sub(row.UpdatedAt) >= r.window {
		return false
	}
	if row.ExpiresAt != nil && !now.Add(r.skew).Before(*row.ExpiresAt) {
		return false
	}
	return true
}

func toUpstreamError(err error) error {
	upErr := &upstream.Error{Service: serviceName, Op: "refresh", Err: err}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			upErr.StatusCode = retrieveErr.Response.StatusCode
		}
		switch {
		case retrieveErr.ErrorDescription != "":
			upErr.Message = retrieveErr.ErrorDescription
		case retrieveErr.ErrorCode != "":
			upErr.Message = retrieveErr.ErrorCode
		default:
			upErr.Message = string(retrieveErr.Body)
		}
	}
	return upErr
}
