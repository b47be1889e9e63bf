package context

import (
	"context"

	"github.com/rahul4469/resume-optimizer/internal/models"
)

type contextkey string

const (
	sessionKey contextkey = "session"
)

// ContextSetSession binds the form session to ctx.
func ContextSetSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// ContextGetSession retrieves the form session from request context.
// Returns nil if the session middleware did not run.
func ContextGetSession(ctx context.Context) *models.Session {
	val := ctx.Value(sessionKey)
	session, ok := val.(*models.Session)
	if !ok {
		return nil
	}
	return session
}
