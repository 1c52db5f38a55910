// Package auth carries the resolved request identity through the context.
// Every scoped store operation receives the user ID from here; nothing
// below the middleware re-checks the session.
package auth

import "context"

type contextKey struct{}

type Identity struct {
	UserID    int64
	SessionID int64
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// UserID returns the authenticated user's ID, or 0 for anonymous contexts.
func UserID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.UserID
}
