package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawaflix/backend/internal/auth"
	"github.com/sawaflix/backend/internal/config"
)

type fakeProvider struct {
	identity  *auth.Identity
	cookies   []*http.Cookie
	err       error
	panicWith any
	calls     int
}

func (f *fakeProvider) Resolve(context.Context, []*http.Cookie) (*auth.Identity, []*http.Cookie, error) {
	f.calls++
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.identity, f.cookies, f.err
}

type capturedRequest struct {
	called   bool
	path     string
	cookies  map[string]string
	identity auth.Identity
	hasIdent bool
}

func captureHandler(out *capturedRequest) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out.called = true
		out.path = r.URL.Path
		out.cookies = make(map[string]string)
		for _, c := range r.Cookies() {
			out.cookies[c.Name] = c.Value
		}
		out.identity, out.hasIdent = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func defaultRoutes(t *testing.T) *RouteTable {
	t.Helper()
	routes, err := RouteTableFromConfig(config.Default().Routes)
	require.NoError(t, err)
	return routes
}

func serveGate(t *testing.T, provider IdentityProvider, routes *RouteTable, req *http.Request) (*httptest.ResponseRecorder, *capturedRequest) {
	t.Helper()
	var captured capturedRequest
	rec := httptest.NewRecorder()
	NewGate(provider, routes).Handler(captureHandler(&captured)).ServeHTTP(rec, req)
	return rec, &captured
}

func TestGateAnonymousProtectedRedirectsToLogin(t *testing.T) {
	for _, path := range []string{"/dashboard", "/movies/123", "/music", "/api/integrations/google/token"} {
		t.Run(path, func(t *testing.T) {
			rec, captured := serveGate(t, &fakeProvider{}, defaultRoutes(t), httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
			assert.False(t, captured.called)
		})
	}
}

func TestGateAuthenticatedAuthOnlyRedirectsToDashboard(t *testing.T) {
	provider := &fakeProvider{identity: &auth.Identity{UserID: "u-1"}}

	for _, path := range []string{"/login", "/signup"} {
		t.Run(path, func(t *testing.T) {
			rec, captured := serveGate(t, provider, defaultRoutes(t), httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
			assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
			assert.False(t, captured.called)
		})
	}
}

func TestGateAllowsEverythingElse(t *testing.T) {
	cases := []struct {
		name     string
		identity *auth.Identity
		path     string
	}{
		{"anonymous public page", nil, "/"},
		{"anonymous login", nil, "/login"},
		{"anonymous login subpath is not exact", nil, "/login/help"},
		{"authenticated protected", &auth.Identity{UserID: "u-1"}, "/dashboard"},
		{"authenticated login subpath", &auth.Identity{UserID: "u-1"}, "/signup/verify"},
		{"anonymous public api", nil, "/api/videos"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("X-Custom", "kept")
			rec, captured := serveGate(t, &fakeProvider{identity: tc.identity}, defaultRoutes(t), req)

			assert.Equal(t, http.StatusOK, rec.Code)
			require.True(t, captured.called)
			assert.Equal(t, tc.path, captured.path)
			assert.Equal(t, tc.identity != nil, captured.hasIdent)
		})
	}
}

func TestGateExcludedPathsSkipResolution(t *testing.T) {
	for _, path := range []string{"/_next/static/chunk.js", "/static/app.css", "/favicon.ico", "/dashboard/logo.png", "/images/Poster.JPG"} {
		t.Run(path, func(t *testing.T) {
			provider := &fakeProvider{}
			rec, captured := serveGate(t, provider, defaultRoutes(t), httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, captured.called)
			assert.Equal(t, 0, provider.calls)
		})
	}
}

func TestGateResolutionErrorFailsOpen(t *testing.T) {
	provider := &fakeProvider{err: errors.New("session store unreachable")}

	rec, captured := serveGate(t, provider, defaultRoutes(t), httptest.NewRequest(http.MethodGet, "/signup", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, captured.called)
	assert.False(t, captured.hasIdent)

	rec, _ = serveGate(t, provider, defaultRoutes(t), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code, "unresolved identity is anonymous")
}

func TestGatePanicForwardsUnmodified(t *testing.T) {
	provider := &fakeProvider{panicWith: "provider exploded"}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "sawaflix_access", Value: "old"})

	rec, captured := serveGate(t, provider, defaultRoutes(t), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, captured.called)
	assert.Equal(t, "old", captured.cookies["sawaflix_access"])
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestGatePropagatesRefreshedCookies(t *testing.T) {
	refreshed := []*http.Cookie{
		{Name: "sawaflix_access", Value: "new-access", Path: "/", HttpOnly: true},
		{Name: "sawaflix_refresh", Value: "new-refresh", Path: "/", HttpOnly: true},
	}
	provider := &fakeProvider{identity: &auth.Identity{UserID: "u-1"}, cookies: refreshed}

	req := httptest.NewRequest(http.MethodGet, "/movies", nil)
	req.AddCookie(&http.Cookie{Name: "sawaflix_access", Value: "stale"})
	req.AddCookie(&http.Cookie{Name: "sawaflix_refresh", Value: "old-refresh"})
	req.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})

	rec, captured := serveGate(t, provider, defaultRoutes(t), req)

	require.True(t, captured.called)
	assert.Equal(t, "new-access", captured.cookies["sawaflix_access"])
	assert.Equal(t, "new-refresh", captured.cookies["sawaflix_refresh"])
	assert.Equal(t, "dark", captured.cookies["theme"])
	assert.Equal(t, "u-1", captured.identity.UserID)

	setCookies := rec.Result().Cookies()
	require.Len(t, setCookies, 2)
	assert.Equal(t, "new-access", setCookies[0].Value)
	assert.Equal(t, "new-refresh", setCookies[1].Value)
}

func TestGateCookiesSurviveRedirect(t *testing.T) {
	provider := &fakeProvider{
		identity: &auth.Identity{UserID: "u-1"},
		cookies:  []*http.Cookie{{Name: "sawaflix_access", Value: "new-access", Path: "/"}},
	}

	rec, _ := serveGate(t, provider, defaultRoutes(t), httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "new-access", cookies[0].Value)
}

func TestGateClearedCookiesAreDroppedFromRequest(t *testing.T) {
	provider := &fakeProvider{cookies: auth.CookieOptions{}.ClearedCookies()}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sawaflix_refresh", Value: "revoked"})

	rec, captured := serveGate(t, provider, defaultRoutes(t), req)

	require.True(t, captured.called)
	_, present := captured.cookies["sawaflix_refresh"]
	assert.False(t, present)
	require.Len(t, rec.Result().Cookies(), 2)
}

func TestGatePrecedence(t *testing.T) {
	// "/account/login" is auth-only exactly and also under the protected prefix "/account".
	protected := []string{"/account"}
	authOnly := []string{"/account/login"}

	t.Run("protected first", func(t *testing.T) {
		routes, err := NewRouteTable(protected, authOnly, nil, config.PrecedenceProtectedFirst)
		require.NoError(t, err)

		assert.Equal(t, "/login", routes.Redirect("/account/login", false))
		assert.Equal(t, "", routes.Redirect("/account/login", true))
	})

	t.Run("auth-only first", func(t *testing.T) {
		routes, err := NewRouteTable(protected, authOnly, nil, config.PrecedenceAuthOnlyFirst)
		require.NoError(t, err)

		assert.Equal(t, "", routes.Redirect("/account/login", false))
		assert.Equal(t, "/dashboard", routes.Redirect("/account/login", true))
	})

	t.Run("default is protected first", func(t *testing.T) {
		routes, err := NewRouteTable(protected, authOnly, nil, "")
		require.NoError(t, err)
		assert.Equal(t, "/login", routes.Redirect("/account/login", false))
	})

	t.Run("through the middleware", func(t *testing.T) {
		routes, err := NewRouteTable(protected, authOnly, nil, config.PrecedenceAuthOnlyFirst)
		require.NoError(t, err)

		rec, captured := serveGate(t, &fakeProvider{}, routes, httptest.NewRequest(http.MethodGet, "/account/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, captured.called)
	})
}

func TestGateNeverRedirectsToItself(t *testing.T) {
	// "/login" sits under the protected prefix "/log"; redirecting it to /login would loop.
	routes, err := NewRouteTable([]string{"/log"}, []string{"/signup"}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, "", routes.Redirect("/login", false))
	assert.Equal(t, "/login", routes.Redirect("/logs", false))
}

func TestGateEvaluate(t *testing.T) {
	gate := NewGate(&fakeProvider{}, defaultRoutes(t))

	decision := gate.Evaluate(httptest.NewRequest(http.MethodGet, "/profile", nil))
	assert.False(t, decision.Allowed())
	assert.Equal(t, "/login", decision.RedirectTo)

	decision = gate.Evaluate(httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.True(t, decision.Skipped)
	assert.True(t, decision.Allowed())
}
