package server

import (
	"context"

	"github.com/jrsteele09/go-session-auth/users"
)

// AuthContext is attached to every API request by DeserializeUser. An empty
// context (Present false) is not an error; downstream handlers decide.
type AuthContext struct {
	Present   bool
	User      users.Identity
	SessionID string
}

type contextKey struct{ name string }

var authContextKey = &contextKey{"auth"}

// WithAuthContext returns ctx carrying ac.
func WithAuthContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// AuthFromContext returns the request's authentication context. A context the
// middleware never touched yields an empty AuthContext.
func AuthFromContext(ctx context.Context) AuthContext {
	ac, _ := ctx.Value(authContextKey).(AuthContext)
	return ac
}
