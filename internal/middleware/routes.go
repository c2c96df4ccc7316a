package middleware

import (
	"fmt"
	"path"
	"strings"

	"github.com/sawaflix/backend/internal/config"
)

// RouteTable is the static access policy evaluated by the session gate. It is
// immutable after construction.
type RouteTable struct {
	protected     []string
	authOnly      map[string]struct{}
	excludePrefix []string
	excludeExt    map[string]struct{}
	authOnlyFirst bool
}

// NewRouteTable builds a table from protected prefixes, exact auth-only paths
// and excluded patterns. Excluded entries of the form "*.ext" match by file
// extension, all others by prefix. precedence decides which rule is checked
// first when a path is both protected and auth-only.
func NewRouteTable(protected, authOnly, excluded []string, precedence string) (*RouteTable, error) {
	t := &RouteTable{
		authOnly:   make(map[string]struct{}, len(authOnly)),
		excludeExt: make(map[string]struct{}),
	}

	switch precedence {
	case "", config.PrecedenceProtectedFirst:
	case config.PrecedenceAuthOnlyFirst:
		t.authOnlyFirst = true
	default:
		return nil, fmt.Errorf("unknown route precedence %q", precedence)
	}

	for _, p := range protected {
		if p == "" || !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("protected prefix %q must start with /", p)
		}
		t.protected = append(t.protected, p)
	}
	for _, p := range authOnly {
		if p == "" || !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("auth-only path %q must start with /", p)
		}
		for _, prot := range protected {
			if prot == p {
				return nil, fmt.Errorf("path %q is listed as both protected and auth-only", p)
			}
		}
		t.authOnly[p] = struct{}{}
	}
	for _, e := range excluded {
		switch {
		case strings.HasPrefix(e, "*."):
			t.excludeExt[strings.ToLower(e[1:])] = struct{}{}
		case e != "":
			t.excludePrefix = append(t.excludePrefix, e)
		}
	}

	return t, nil
}

// RouteTableFromConfig is NewRouteTable over the routes section of cfg.
func RouteTableFromConfig(cfg config.RoutesConfig) (*RouteTable, error) {
	return NewRouteTable(cfg.Protected, cfg.AuthOnly, cfg.Excluded, cfg.Precedence)
}

// Excluded reports whether p bypasses the gate entirely.
func (t *RouteTable) Excluded(p string) bool {
	for _, prefix := range t.excludePrefix {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	if ext := path.Ext(p); ext != "" {
		_, ok := t.excludeExt[strings.ToLower(ext)]
		return ok
	}
	return false
}

// Protected reports whether p starts with any protected prefix.
func (t *RouteTable) Protected(p string) bool {
	for _, prefix := range t.protected {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// AuthOnly reports whether p is exactly one of the auth-only paths.
func (t *RouteTable) AuthOnly(p string) bool {
	_, ok := t.authOnly[p]
	return ok
}

// Redirect returns the redirect target for a request to p, or "" to allow it.
// A path matching both sets gets exactly one classification, chosen by the
// table's precedence. A target equal to p is never returned.
func (t *RouteTable) Redirect(p string, authenticated bool) string {
	protected, authOnly := t.Protected(p), t.AuthOnly(p)
	if protected && authOnly {
		if t.authOnlyFirst {
			protected = false
		} else {
			authOnly = false
		}
	}

	var target string
	switch {
	case protected && !authenticated:
		target = LoginPath
	case authOnly && authenticated:
		target = DashboardPath
	}
	if target == p {
		return ""
	}
	return target
}
