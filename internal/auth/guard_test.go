package auth_test

import (
	"context"
	"errors"
	"testing"

	"stockflow/internal/apperr"
	"stockflow/internal/auth"
	"stockflow/internal/model"
	"stockflow/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	users map[string]*model.User
	err   error
	calls int
}

func (f *fakeUsers) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[externalID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func directory() *fakeUsers {
	return &fakeUsers{users: map[string]*model.User{
		"user_admin":  {ExternalID: "user_admin", Email: "admin@example.com", Role: model.RoleAdmin},
		"user_staff":  {ExternalID: "user_staff", Email: "staff@example.com", Role: model.RoleStaff},
		"user_viewer": {ExternalID: "user_viewer", Email: "viewer@example.com", Role: model.RoleViewer},
	}}
}

func sessionFor(subject string) context.Context {
	return auth.WithSession(context.Background(), auth.Session{Subject: subject})
}

func TestRequireSession(t *testing.T) {
	_, err := auth.RequireSession(context.Background())
	assert.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))

	_, err = auth.RequireSession(sessionFor(""))
	assert.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))

	_, err = auth.RequireSession(sessionFor("user_staff"))
	assert.NoError(t, err)
}

func TestRequireKnownUser(t *testing.T) {
	users := directory()

	ctx, err := auth.RequireKnownUser(users)(sessionFor("user_staff"))
	require.NoError(t, err)
	u, ok := auth.UserFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "staff@example.com", u.Email)

	_, err = auth.RequireKnownUser(users)(sessionFor("user_ghost"))
	assert.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))
	assert.Equal(t, "user not found, please log out and back in", apperr.MessageOf(err))

	broken := &fakeUsers{err: errors.New("connection refused")}
	_, err = auth.RequireKnownUser(broken)(sessionFor("user_staff"))
	assert.Equal(t, apperr.Internal, apperr.CodeOf(err))
}

func TestTier(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		allowed model.RoleSet
		want    apperr.Code
	}{
		{"no session", context.Background(), auth.AnyRole, apperr.Unauthenticated},
		{"unknown user", sessionFor("user_ghost"), auth.AnyRole, apperr.Unauthenticated},
		{"viewer on staff tier", sessionFor("user_viewer"), auth.StaffOrAdmin, apperr.Forbidden},
		{"staff on admin tier", sessionFor("user_staff"), auth.AdminOnly, apperr.Forbidden},
		{"empty set", sessionFor("user_admin"), model.NewRoleSet(), apperr.Forbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Tier(directory(), tt.allowed)(tt.ctx)
			require.Error(t, err)
			assert.Equal(t, tt.want, apperr.CodeOf(err))
		})
	}

	for _, subject := range []string{"user_admin", "user_staff"} {
		_, err := auth.Tier(directory(), auth.StaffOrAdmin)(sessionFor(subject))
		assert.NoError(t, err, subject)
	}
	_, err := auth.Tier(directory(), auth.AnyRole)(sessionFor("user_viewer"))
	assert.NoError(t, err)
}

func TestRequireRole_MessageListsAllowedRoles(t *testing.T) {
	_, err := auth.Tier(directory(), auth.StaffOrAdmin)(sessionFor("user_viewer"))
	assert.Equal(t, "insufficient role, allowed roles: ADMIN, STAFF", apperr.MessageOf(err))
}

func TestChain_StopsAtFirstRejection(t *testing.T) {
	users := directory()
	_, err := auth.Chain(auth.RequireSession, auth.RequireKnownUser(users))(context.Background())

	assert.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))
	assert.Zero(t, users.calls)
}

func TestPolicy(t *testing.T) {
	policy := auth.DefaultPolicy(false)

	_, err := policy.Guard("inventory.teleport", directory())(sessionFor("user_admin"))
	assert.Equal(t, apperr.Forbidden, apperr.CodeOf(err))
	assert.Empty(t, policy.Allowed("inventory.teleport"))

	_, err = policy.Guard(auth.OpTransactionCreate, directory())(sessionFor("user_viewer"))
	assert.Equal(t, apperr.Forbidden, apperr.CodeOf(err))

	_, err = policy.Guard(auth.OpTransactionCreate, directory())(sessionFor("user_staff"))
	assert.NoError(t, err)

	_, err = policy.Guard(auth.OpUserUpdateRole, directory())(sessionFor("user_staff"))
	assert.Equal(t, apperr.Forbidden, apperr.CodeOf(err))

	_, err = policy.Guard(auth.OpTransactionList, directory())(sessionFor("user_viewer"))
	assert.NoError(t, err)

	strict := auth.DefaultPolicy(true)
	_, err = strict.Guard(auth.OpTransactionList, directory())(sessionFor("user_viewer"))
	assert.Equal(t, apperr.Forbidden, apperr.CodeOf(err))
}

func TestPolicy_ViewerIsReadOnly(t *testing.T) {
	for op, allowed := range auth.DefaultPolicy(false) {
		if allowed.Contains(model.RoleViewer) {
			assert.Contains(t, []string{
				auth.OpCategoryList,
				auth.OpSupplierList,
				auth.OpProductList,
				auth.OpTransactionList,
				auth.OpDashboardStats,
				auth.OpDashboardStockMovement,
				auth.OpDashboardLowStock,
			}, op)
		}
	}
}
