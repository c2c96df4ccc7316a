package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sawaflix/backend/internal/auth"
	"github.com/sawaflix/backend/internal/integrations"
	"github.com/sawaflix/backend/internal/logging"
	"github.com/sawaflix/backend/internal/models"
	"github.com/sawaflix/backend/internal/repositories"
	"github.com/sawaflix/backend/internal/upstream"
)

// IntegrationHandler exposes the signed-in user's Google credentials.
type IntegrationHandler struct {
	Tokens  TokenProvider
	Links   IntegrationLinker
	NowFunc func() time.Time
}

// Token handles GET /api/integrations/google/token.
func (h IntegrationHandler) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}
	if h.Tokens == nil {
		logger.Error("token provider unavailable")
		respondError(ctx, w, http.StatusServiceUnavailable, "google integration unavailable")
		return
	}

	token, err := h.Tokens.GetValidToken(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "google account not linked")
			return
		}
		if upErr, ok := upstream.As(err); ok {
			respondError(ctx, w, http.StatusBadGateway, upErr.Describe())
			return
		}
		logger.Error("google token lookup failed", "userId", identity.UserID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load google token")
		return
	}

	respondJSON(ctx, w, http.StatusOK, tokenResponse{AccessToken: token})
}

// Link handles POST /api/integrations/google, storing the credentials obtained
// by the client-side OAuth consent flow.
func (h IntegrationHandler) Link(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}
	if h.Links == nil {
		logger.Error("integration linker unavailable")
		respondError(ctx, w, http.StatusServiceUnavailable, "google integration unavailable")
		return
	}

	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.AccessToken = strings.TrimSpace(req.AccessToken)
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.AccessToken == "" || req.RefreshToken == "" {
		respondError(ctx, w, http.StatusBadRequest, "accessToken and refreshToken are required")
		return
	}
	if req.ExpiresIn < 0 {
		respondError(ctx, w, http.StatusBadRequest, "expiresIn must not be negative")
		return
	}

	now := h.now()
	integration := models.GoogleIntegration{
		UserID:       identity.UserID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		UpdatedAt:    now,
	}
	if req.ExpiresIn > 0 {
		expires := now.Add(time.Duration(req.ExpiresIn) * time.Second)
		integration.ExpiresAt = &expires
	}

	if err := h.Links.LinkGoogle(ctx, integration); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error("link google account failed", "userId", identity.UserID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to link google account")
		return
	}

	logger.Info("google account linked", "userId", identity.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h IntegrationHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type linkRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}
