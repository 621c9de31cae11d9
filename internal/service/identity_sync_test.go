package service_test

import (
	"testing"

	"stockflow/internal/apperr"
	"stockflow/internal/identity"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userEvent(eventType, id, email, role string) *identity.Event {
	evt := &identity.Event{Type: eventType, Data: identity.UserData{ID: id}}
	if email != "" {
		evt.Data.EmailAddresses = []identity.EmailAddress{{ID: "idn_1", EmailAddress: email}}
	}
	evt.Data.PublicMetadata.Role = role
	return evt
}

func TestIdentitySync_CreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	svc := service.NewIdentitySyncService(f.store.Users())

	require.NoError(t, svc.HandleEvent(f.ctx, userEvent(identity.EventUserCreated, "user_new", "new@example.com", "")))
	u, err := f.store.Users().FindByExternalID(f.ctx, "user_new")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Equal(t, model.RoleViewer, u.Role)

	require.NoError(t, svc.HandleEvent(f.ctx, userEvent(identity.EventUserUpdated, "user_new", "renamed@example.com", "admin")))
	updated, err := f.store.Users().FindByExternalID(f.ctx, "user_new")
	require.NoError(t, err)
	assert.Equal(t, u.ID, updated.ID)
	assert.Equal(t, "renamed@example.com", updated.Email)
	assert.Equal(t, model.RoleAdmin, updated.Role)
}

func TestIdentitySync_UnknownRoleFallsBackToViewer(t *testing.T) {
	f := newFixture(t)
	svc := service.NewIdentitySyncService(f.store.Users())

	require.NoError(t, svc.HandleEvent(f.ctx, userEvent(identity.EventUserCreated, "user_x", "x@example.com", "superuser")))
	u, err := f.store.Users().FindByExternalID(f.ctx, "user_x")
	require.NoError(t, err)
	assert.Equal(t, model.RoleViewer, u.Role)
}

func TestIdentitySync_RequiresEmail(t *testing.T) {
	f := newFixture(t)
	svc := service.NewIdentitySyncService(f.store.Users())

	err := svc.HandleEvent(f.ctx, userEvent(identity.EventUserCreated, "user_x", "", ""))
	assert.Equal(t, apperr.BadRequest, apperr.CodeOf(err))
	assert.Equal(t, "No email addresses found", apperr.MessageOf(err))

	_, err = f.store.Users().FindByExternalID(f.ctx, "user_x")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIdentitySync_Delete(t *testing.T) {
	f := newFixture(t)
	svc := service.NewIdentitySyncService(f.store.Users())

	require.NoError(t, svc.HandleEvent(f.ctx, userEvent(identity.EventUserDeleted, "user_viewer", "", "")))
	_, err := f.store.Users().FindByExternalID(f.ctx, "user_viewer")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// a second delivery of the same event is harmless
	assert.NoError(t, svc.HandleEvent(f.ctx, userEvent(identity.EventUserDeleted, "user_viewer", "", "")))
}

func TestIdentitySync_IgnoresOtherEvents(t *testing.T) {
	f := newFixture(t)
	svc := service.NewIdentitySyncService(f.store.Users())

	assert.NoError(t, svc.HandleEvent(f.ctx, userEvent("session.created", "user_staff", "", "")))
}
