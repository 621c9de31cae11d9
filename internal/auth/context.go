package auth

import (
	"context"

	"stockflow/internal/model"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	userKey
)

// Session is the verified identity-provider session of a request.
type Session struct {
	Subject string
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the request session, if one was verified.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok && s.Subject != ""
}

func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the local user attached by RequireKnownUser.
func UserFrom(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
