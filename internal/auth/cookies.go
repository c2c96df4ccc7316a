package auth

import (
	"net/http"
	"time"

	"github.com/sawaflix/backend/internal/models"
)

// CookieOptions names the session cookies and how they are issued.
type CookieOptions struct {
	AccessName  string
	RefreshName string
	Secure      bool
}

func (o CookieOptions) normalize() CookieOptions {
	if o.AccessName == "" {
		o.AccessName = "sawaflix_access"
	}
	if o.RefreshName == "" {
		o.RefreshName = "sawaflix_refresh"
	}
	return o
}

// RefreshCookieName is the effective name of the refresh token cookie.
func (o CookieOptions) RefreshCookieName() string {
	return o.normalize().RefreshName
}

// SessionCookies renders tokens as the pair of cookies the browser keeps.
func (o CookieOptions) SessionCookies(tokens models.SessionTokens) []*http.Cookie {
	o = o.normalize()
	return []*http.Cookie{
		o.cookie(o.AccessName, tokens.AccessToken, tokens.AccessExpiresAt),
		o.cookie(o.RefreshName, tokens.RefreshToken, tokens.RefreshExpiresAt),
	}
}

// ClearedCookies expires both session cookies.
func (o CookieOptions) ClearedCookies() []*http.Cookie {
	o = o.normalize()
	access := o.cookie(o.AccessName, "", time.Time{})
	access.MaxAge = -1
	refresh := o.cookie(o.RefreshName, "", time.Time{})
	refresh.MaxAge = -1
	return []*http.Cookie{access, refresh}
}

// Write adds a Set-Cookie header for each cookie.
func Write(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}

func (o CookieOptions) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
