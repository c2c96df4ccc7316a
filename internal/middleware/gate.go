package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sawaflix/backend/internal/auth"
	"github.com/sawaflix/backend/internal/logging"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// IdentityProvider resolves the caller from request cookies. It returns the
// cookies that must be refreshed on the client alongside the identity.
type IdentityProvider interface {
	Resolve(ctx context.Context, cookies []*http.Cookie) (*auth.Identity, []*http.Cookie, error)
}

// Decision is the gate's verdict for one request.
type Decision struct {
	// Skipped is set for excluded paths; nothing else was evaluated.
	Skipped bool
	// RedirectTo is empty when the request may proceed.
	RedirectTo string
	Identity   *auth.Identity
	Cookies    []*http.Cookie
}

// Allowed reports whether the request is forwarded to the next handler.
func (d Decision) Allowed() bool {
	return d.RedirectTo == ""
}

// Gate redirects anonymous callers away from protected pages and signed-in
// callers away from the login and signup pages.
type Gate struct {
	provider IdentityProvider
	routes   *RouteTable
}

func NewGate(provider IdentityProvider, routes *RouteTable) *Gate {
	return &Gate{provider: provider, routes: routes}
}

// Evaluate decides what happens to r. Identity resolution failures are logged
// and treated as an anonymous caller.
func (g *Gate) Evaluate(r *http.Request) Decision {
	p := r.URL.Path
	if g.routes.Excluded(p) {
		return Decision{Skipped: true}
	}

	ctx := r.Context()
	identity, cookies, err := g.provider.Resolve(ctx, r.Cookies())
	if err != nil {
		logging.FromContext(ctx).Warn("auth resolution failed, continuing unauthenticated", "path", p, "error", err)
		identity, cookies = nil, nil
	}

	return Decision{
		RedirectTo: g.routes.Redirect(p, identity != nil),
		Identity:   identity,
		Cookies:    cookies,
	}
}

// Handler wraps next with the gate. Refreshed cookies are written to the
// response and merged into the forwarded request on every outcome. A panic
// while evaluating forwards the original request untouched.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forward, redirect, ok := g.prepare(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		auth.Write(w, forward.cookies)
		if redirect != "" {
			http.Redirect(w, forward.req, redirect, http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, forward.req)
	})
}

type prepared struct {
	req     *http.Request
	cookies []*http.Cookie
}

func (g *Gate) prepare(r *http.Request) (out prepared, redirect string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.FromContext(r.Context()).Error("session gate panic recovered, forwarding request", "panic", fmt.Sprint(rec))
			out, redirect, ok = prepared{}, "", false
		}
	}()

	decision := g.Evaluate(r)
	if decision.Skipped {
		return prepared{req: r}, "", true
	}

	req := r
	if len(decision.Cookies) > 0 {
		req = withCookies(req, decision.Cookies)
	}
	if decision.Identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *decision.Identity))
	}
	return prepared{req: req, cookies: decision.Cookies}, decision.RedirectTo, true
}

// withCookies returns a copy of r whose Cookie header carries the refreshed
// values. Same-name cookies are replaced and cleared cookies are dropped.
func withCookies(r *http.Request, refreshed []*http.Cookie) *http.Request {
	replaced := make(map[string]*http.Cookie, len(refreshed))
	for _, c := range refreshed {
		replaced[c.Name] = c
	}

	var pairs []string
	for _, c := range r.Cookies() {
		if _, ok := replaced[c.Name]; ok {
			continue
		}
		pairs = append(pairs, (&http.Cookie{Name: c.Name, Value: c.Value}).String())
	}
	for _, c := range refreshed {
		if c.MaxAge < 0 || c.Value == "" {
			continue
		}
		pairs = append(pairs, (&http.Cookie{Name: c.Name, Value: c.Value}).String())
	}

	clone := r.Clone(r.Context())
	clone.Header.Del("Cookie")
	if len(pairs) > 0 {
		clone.Header.Set("Cookie", strings.Join(pairs, "; "))
	}
	return clone
}
