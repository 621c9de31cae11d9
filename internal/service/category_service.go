package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"stockflow/internal/apperr"
	"stockflow/internal/cache"
	"stockflow/internal/model"
	"stockflow/internal/repository"

	"github.com/google/uuid"
)

type CreateCategoryInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

type UpdateCategoryInput struct {
	Name *string `json:"name" validate:"omitempty,max=255"`
}

type CategoryService interface {
	Create(ctx context.Context, in CreateCategoryInput) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateCategoryInput) (*model.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	store    repository.Store
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewCategoryService(store repository.Store, c cache.Cache, cacheTTL time.Duration) CategoryService {
	if c == nil {
		c = cache.Nop{}
	}
	return &categoryService{store: store, cache: c, cacheTTL: cacheTTL}
}

// NormalizeCategoryName is the stored form of a category name.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

var errCategoryNameUsed = apperr.New(apperr.BadRequest, "category name already used")

func (s *categoryService) Create(ctx context.Context, in CreateCategoryInput) (*model.Category, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	name := NormalizeCategoryName(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.BadRequest, "category name is required")
	}

	// Friendly early answer; the unique index decides races.
	if _, err := s.store.Categories().FindByName(ctx, name); err == nil {
		return nil, errCategoryNameUsed
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, failure(err, "failed to check category name")
	}

	category := &model.Category{Name: name}
	if err := s.store.Categories().Create(ctx, category); err != nil {
		if repository.IsUniqueViolation(err, "name") {
			return nil, errCategoryNameUsed
		}
		return nil, failure(err, "failed to create category")
	}

	cache.Invalidate(ctx, s.cache, cache.KeyCategories)
	return category, nil
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := cache.Remember(ctx, s.cache, cache.KeyCategories, s.cacheTTL, s.store.Categories().FindAll)
	if err != nil {
		return nil, failure(err, "failed to list categories")
	}
	return categories, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, in UpdateCategoryInput) (*model.Category, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	category, err := s.store.Categories().FindByID(ctx, id)
	if err != nil {
		return nil, failure(notFound(err, "category not found"), "failed to load category")
	}
	if in.Name == nil {
		return category, nil
	}

	name := NormalizeCategoryName(*in.Name)
	if name == "" {
		return nil, apperr.New(apperr.BadRequest, "category name is required")
	}
	if existing, err := s.store.Categories().FindByName(ctx, name); err == nil && existing.ID != id {
		return nil, errCategoryNameUsed
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, failure(err, "failed to check category name")
	}

	category.Name = name
	if err := s.store.Categories().Update(ctx, category); err != nil {
		if repository.IsUniqueViolation(err, "name") {
			return nil, errCategoryNameUsed
		}
		return nil, failure(notFound(err, "category not found"), "failed to update category")
	}

	// product listings embed the category name
	cache.Invalidate(ctx, s.cache, cache.KeyCategories, cache.KeyProducts)
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Categories().Delete(ctx, id); err != nil {
		return failure(notFound(err, "category not found"), "failed to delete category")
	}
	cache.Invalidate(ctx, s.cache, cache.KeyCategories, cache.KeyProducts)
	return nil
}
