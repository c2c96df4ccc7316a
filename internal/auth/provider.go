package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// CookieProvider resolves identities from the session cookies, rotating the
// refresh token when the access token is missing or expired.
type CookieProvider struct {
	manager *Manager
	cookies CookieOptions
}

// NewCookieProvider returns a provider that reads the cookies named in opts.
func NewCookieProvider(manager *Manager, opts CookieOptions) *CookieProvider {
	return &CookieProvider{manager: manager, cookies: opts.normalize()}
}

// Cookies exposes the cookie layout so handlers issue matching cookies.
func (p *CookieProvider) Cookies() CookieOptions {
	return p.cookies
}

// Resolve returns the caller's identity (nil when anonymous) and any cookies
// that must be set on the response. Only store failures are returned as errors.
func (p *CookieProvider) Resolve(ctx context.Context, cookies []*http.Cookie) (*Identity, []*http.Cookie, error) {
	access := cookieValue(cookies, p.cookies.AccessName)
	if access != "" {
		identity, err := p.manager.ParseAccessToken(access)
		if err == nil {
			return &identity, nil, nil
		}
	}

	refresh := cookieValue(cookies, p.cookies.RefreshName)
	if refresh == "" {
		return nil, nil, nil
	}

	tokens, err := p.manager.Refresh(ctx, refresh)
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrRefreshTokenExpired):
		return nil, p.cookies.ClearedCookies(), nil
	case err != nil:
		return nil, nil, fmt.Errorf("refresh session: %w", err)
	}

	identity, err := p.manager.ParseAccessToken(tokens.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("parse rotated access token: %w", err)
	}
	return &identity, p.cookies.SessionCookies(tokens), nil
}

func cookieValue(cookies []*http.Cookie, name string) string {
	for _, c := range cookies {
		if c != nil && c.Name == name {
			return c.Value
		}
	}
	return ""
}
