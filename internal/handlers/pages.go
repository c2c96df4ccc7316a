package handlers

import (
	"net/http"

	"github.com/sawaflix/backend/internal/auth"
)

// PageHandler answers the navigable pages. Rendering belongs to the frontend;
// these stubs describe the page and who is viewing it.
type PageHandler struct {
	Name string
}

// Handle implements GET for a single page.
func (h PageHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	resp := pageResponse{Page: h.Name}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		resp.User = &userResponse{ID: identity.UserID, Email: identity.Email}
	}
	respondJSON(ctx, w, http.StatusOK, resp)
}

type pageResponse struct {
	Page string        `json:"page"`
	User *userResponse `json:"user,omitempty"`
}
