package repository

import (
	"context"

	"stockflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db}
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) FindAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, translate(err)
}

// UpsertByExternalID inserts user or refreshes email and role of the row with
// the same external id. user is reloaded from the stored row.
func (r *userRepo) UpsertByExternalID(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "role", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return translate(err)
	}
	stored, err := r.FindByExternalID(ctx, user.ExternalID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

func (r *userRepo) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) DeleteByExternalID(ctx context.Context, externalID string) error {
	res := r.db.WithContext(ctx).Where("external_id = ?", externalID).Delete(&model.User{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
