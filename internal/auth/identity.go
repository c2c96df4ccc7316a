package auth

import "context"

// Identity is the authenticated caller resolved for a single request.
type Identity struct {
	UserID string
	Email  string
}

type identityKey struct{}

// WithIdentity attaches the resolved identity to ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by the session gate, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok && identity.UserID != ""
}
