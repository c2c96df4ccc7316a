package handlers

import (
	"net/http"

	"github.com/sawaflix/backend/internal/auth"
	"github.com/sawaflix/backend/internal/middleware"
)

var pages = []string{"dashboard", "movies", "music", "videos", "profile", "login", "signup"}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	accounts := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Cookies: deps.Cookies}
	feed := VideoHandler{Feed: deps.Videos}
	google := IntegrationHandler{Tokens: deps.Integrations, Links: deps.GoogleLinks}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/auth/login", accounts.Login)
	mux.HandleFunc("/api/auth/signup", accounts.SignUp)
	mux.HandleFunc("/api/auth/logout", accounts.Logout)

	var list http.Handler = http.HandlerFunc(feed.List)
	if deps.FeedLimiter != nil {
		list = middleware.RateLimit(deps.FeedLimiter, "videos")(list)
	}
	mux.Handle("/api/videos", list)

	mux.HandleFunc("/api/integrations/google", google.Link)
	mux.HandleFunc("/api/integrations/google/token", google.Token)

	for _, name := range pages {
		mux.HandleFunc("/"+name, PageHandler{Name: name}.Handle)
	}
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users        UserStore
	Sessions     SessionManager
	Cookies      auth.CookieOptions
	Videos       VideoFeed
	Integrations TokenProvider
	GoogleLinks  IntegrationLinker
	FeedLimiter  middleware.RateLimiter
}
