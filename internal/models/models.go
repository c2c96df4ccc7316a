package models

import "time"

// User represents a SawaFlix account.
type User struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionTokens groups the credentials issued to a signed-in user. They travel
// to the browser as cookies.
type SessionTokens struct {
	AccessToken      string    `json:"-"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// GoogleIntegration is the per-user row holding linked Google OAuth credentials.
// It is created when the user links their account and only the token refresher
// mutates it afterwards.
type GoogleIntegration struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	UpdatedAt    time.Time
	// ExpiresAt is the provider-reported expiry, when known.
	ExpiresAt *time.Time
}
