package service

import (
	"context"
	"errors"

	"stockflow/internal/apperr"
	"stockflow/internal/identity"
	"stockflow/internal/metrics"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/pkg/logger"
)

// IdentitySyncService mirrors provider user events into local users.
type IdentitySyncService interface {
	HandleEvent(ctx context.Context, evt *identity.Event) error
}

type identitySyncService struct {
	users repository.UserRepository
}

func NewIdentitySyncService(users repository.UserRepository) IdentitySyncService {
	return &identitySyncService{users: users}
}

func (s *identitySyncService) HandleEvent(ctx context.Context, evt *identity.Event) error {
	err := s.handle(ctx, evt)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.RecordIdentityEvent(evt.Type, result)
	return err
}

func (s *identitySyncService) handle(ctx context.Context, evt *identity.Event) error {
	log := logger.WithContext(ctx).With().
		Str("event_type", evt.Type).
		Str("external_id", evt.Data.ID).
		Logger()

	switch evt.Type {
	case identity.EventUserCreated, identity.EventUserUpdated:
		email, ok := evt.Data.PrimaryEmail()
		if !ok {
			return apperr.New(apperr.BadRequest, "No email addresses found")
		}
		user := &model.User{
			ExternalID: evt.Data.ID,
			Email:      email,
			Role:       identity.MapRole(evt.Data.PublicMetadata.Role),
		}
		if err := s.users.UpsertByExternalID(ctx, user); err != nil {
			return failure(err, "failed to sync user")
		}
		log.Info().Str("role", string(user.Role)).Msg("user synced")

	case identity.EventUserDeleted:
		err := s.users.DeleteByExternalID(ctx, evt.Data.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return failure(err, "failed to delete user")
		}
		log.Info().Msg("user deleted")

	default:
		log.Info().Msg("unhandled identity event")
	}
	return nil
}
