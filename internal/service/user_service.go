package service

import (
	"context"
	"errors"

	"stockflow/internal/apperr"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/pkg/logger"

	"github.com/google/uuid"
)

// IdentityProvider manages accounts at the external identity provider.
type IdentityProvider interface {
	DeleteUser(ctx context.Context, externalID string) error
}

type UpdateRoleInput struct {
	Role string `json:"role" validate:"required"`
}

type DeleteUserResult struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
}

type UserService interface {
	List(ctx context.Context) ([]model.UserResponse, error)
	// GetSelf returns the local user for a session subject, or nil when none exists yet.
	GetSelf(ctx context.Context, subject string) (*model.UserResponse, error)
	UpdateRole(ctx context.Context, id uuid.UUID, in UpdateRoleInput) (*model.UserResponse, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) (*DeleteUserResult, error)
}

type userService struct {
	store    repository.Store
	identity IdentityProvider
}

func NewUserService(store repository.Store, identity IdentityProvider) UserService {
	return &userService{store: store, identity: identity}
}

func (s *userService) List(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.store.Users().FindAll(ctx)
	if err != nil {
		return nil, failure(err, "failed to list users")
	}
	resp := make([]model.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, users[i].ToResponse())
	}
	return resp, nil
}

func (s *userService) GetSelf(ctx context.Context, subject string) (*model.UserResponse, error) {
	user, err := s.store.Users().FindByExternalID(ctx, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, failure(err, "failed to load user")
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) UpdateRole(ctx context.Context, id uuid.UUID, in UpdateRoleInput) (*model.UserResponse, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	role, err := model.ParseRole(in.Role)
	if err != nil {
		return nil, apperr.Newf(apperr.BadRequest, "invalid role %q, expected one of %s", in.Role, model.NewRoleSet(model.AllRoles...))
	}

	if err := s.store.Users().UpdateRole(ctx, id, role); err != nil {
		return nil, failure(notFound(err, "user not found"), "failed to update user role")
	}
	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, failure(notFound(err, "user not found"), "failed to load user")
	}
	resp := user.ToResponse()
	return &resp, nil
}

// Delete removes the provider account first, then the local row. The local
// row may already be gone if the provider's deletion webhook arrived first.
func (s *userService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) (*DeleteUserResult, error) {
	if actor != nil && actor.ID == id {
		return nil, apperr.New(apperr.BadRequest, "you cannot delete your own account")
	}

	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, failure(notFound(err, "user not found"), "failed to load user")
	}

	if err := s.identity.DeleteUser(ctx, user.ExternalID); err != nil {
		logger.Error(ctx).Err(err).Str("external_id", user.ExternalID).Msg("identity provider deletion failed")
		return nil, apperr.Wrap(apperr.Internal, err, "failed to delete user from identity provider")
	}

	if err := s.store.Users().Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, failure(err, "failed to delete user")
	}

	logger.Info(ctx).Str("user_id", id.String()).Str("email", user.Email).Msg("user deleted")
	return &DeleteUserResult{Success: true, Email: user.Email}, nil
}
