package repository

import (
	"context"

	"stockflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type categoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db}
}

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	return translate(r.db.WithContext(ctx).Create(category).Error)
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *categoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *categoryRepo) FindAll(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&categories).Error
	return categories, translate(err)
}

func (r *categoryRepo) Update(ctx context.Context, category *model.Category) error {
	res := r.db.WithContext(ctx).Model(category).Update("name", category.Name)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Category{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type supplierRepo struct {
	db *gorm.DB
}

func NewSupplierRepo(db *gorm.DB) SupplierRepository {
	return &supplierRepo{db}
}

func (r *supplierRepo) Create(ctx context.Context, supplier *model.Supplier) error {
	return translate(r.db.WithContext(ctx).Create(supplier).Error)
}

func (r *supplierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &supplier, nil
}

func (r *supplierRepo) FindAll(ctx context.Context) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&suppliers).Error
	return suppliers, translate(err)
}

func (r *supplierRepo) Update(ctx context.Context, supplier *model.Supplier) error {
	res := r.db.WithContext(ctx).Model(supplier).Updates(map[string]interface{}{
		"name":    supplier.Name,
		"contact": supplier.Contact,
		"address": supplier.Address,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *supplierRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Supplier{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
