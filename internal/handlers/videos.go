package handlers

import (
	"errors"
	"net/http"

	"github.com/sawaflix/backend/internal/logging"
	"github.com/sawaflix/backend/internal/upstream"
	"github.com/sawaflix/backend/internal/videos"
)

// VideoHandler serves the aggregated video feed.
type VideoHandler struct {
	Feed VideoFeed
}

// List handles GET /api/videos?q=&pageToken=.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Feed == nil {
		logger.Error("video feed unavailable")
		respondError(ctx, w, http.StatusServiceUnavailable, "video feed unavailable")
		return
	}

	query := r.URL.Query()
	page, err := h.Feed.Fetch(ctx, query.Get("q"), query.Get("pageToken"))
	if err != nil {
		if upErr, ok := upstream.As(err); ok {
			respondError(ctx, w, http.StatusBadGateway, upErr.Describe())
			return
		}
		if errors.Is(err, videos.ErrProviderUnavailable) {
			respondError(ctx, w, http.StatusServiceUnavailable, "video feed unavailable")
			return
		}
		logger.Error("video feed failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load videos")
		return
	}

	if page.Items == nil {
		page.Items = []videos.Video{}
	}
	respondJSON(ctx, w, http.StatusOK, page)
}
