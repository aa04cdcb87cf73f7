package auth

import "context"

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID      uint
	Email   string
	IsAdmin bool
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by the auth middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// PrincipalFromClaims converts verified claims.
func PrincipalFromClaims(c *Claims) Principal {
	return Principal{ID: c.UserID, Email: c.Email, IsAdmin: c.Role == RoleAdmin}
}
