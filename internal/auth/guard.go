// Package auth implements request authorization as a chain of guards over an
// explicit request context.
package auth

import (
	"context"
	"errors"

	"stockflow/internal/apperr"
	"stockflow/internal/model"
	"stockflow/internal/repository"
)

// Guard admits or rejects a request. An admitted request may receive an
// enriched context.
type Guard func(ctx context.Context) (context.Context, error)

// UserFinder resolves a session subject to the local user.
type UserFinder interface {
	FindByExternalID(ctx context.Context, externalID string) (*model.User, error)
}

// RequireSession rejects requests without a verified session.
func RequireSession(ctx context.Context) (context.Context, error) {
	if _, ok := SessionFrom(ctx); !ok {
		return ctx, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	return ctx, nil
}

// RequireKnownUser loads the local user for the session subject.
func RequireKnownUser(users UserFinder) Guard {
	return func(ctx context.Context) (context.Context, error) {
		s, ok := SessionFrom(ctx)
		if !ok {
			return ctx, apperr.New(apperr.Unauthenticated, "authentication required")
		}
		user, err := users.FindByExternalID(ctx, s.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ctx, apperr.New(apperr.Unauthenticated, "user not found, please log out and back in")
			}
			return ctx, apperr.Wrap(apperr.Internal, err, "failed to load user")
		}
		return WithUser(ctx, user), nil
	}
}

// RequireRole admits users whose role is in allowed. An empty set admits nobody.
func RequireRole(allowed model.RoleSet) Guard {
	return func(ctx context.Context) (context.Context, error) {
		user, ok := UserFrom(ctx)
		if !ok {
			return ctx, apperr.New(apperr.Unauthenticated, "authentication required")
		}
		if !allowed.Contains(user.Role) {
			if len(allowed) == 0 {
				return ctx, apperr.New(apperr.Forbidden, "operation not permitted")
			}
			return ctx, apperr.Newf(apperr.Forbidden, "insufficient role, allowed roles: %s", allowed)
		}
		return ctx, nil
	}
}

// Chain runs guards in order and stops at the first rejection.
func Chain(guards ...Guard) Guard {
	return func(ctx context.Context) (context.Context, error) {
		var err error
		for _, g := range guards {
			if ctx, err = g(ctx); err != nil {
				return ctx, err
			}
		}
		return ctx, nil
	}
}

var (
	AnyRole      = model.NewRoleSet(model.AllRoles...)
	StaffOrAdmin = model.NewRoleSet(model.RoleAdmin, model.RoleStaff)
	AdminOnly    = model.NewRoleSet(model.RoleAdmin)
)

// Tier builds the standard session, known-user and role chain.
func Tier(users UserFinder, allowed model.RoleSet) Guard {
	return Chain(RequireSession, RequireKnownUser(users), RequireRole(allowed))
}
