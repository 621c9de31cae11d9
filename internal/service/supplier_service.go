package service

import (
	"context"
	"strings"
	"time"

	"stockflow/internal/cache"
	"stockflow/internal/model"
	"stockflow/internal/repository"

	"github.com/google/uuid"
)

type SupplierInput struct {
	Name    string  `json:"name" validate:"required,max=255"`
	Contact *string `json:"contact" validate:"omitempty,max=255"`
	Address *string `json:"address" validate:"omitempty,max=1000"`
}

type SupplierService interface {
	Create(ctx context.Context, in SupplierInput) (*model.Supplier, error)
	List(ctx context.Context) ([]model.Supplier, error)
	Update(ctx context.Context, id uuid.UUID, in SupplierInput) (*model.Supplier, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type supplierService struct {
	store    repository.Store
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewSupplierService(store repository.Store, c cache.Cache, cacheTTL time.Duration) SupplierService {
	if c == nil {
		c = cache.Nop{}
	}
	return &supplierService{store: store, cache: c, cacheTTL: cacheTTL}
}

func (in SupplierInput) normalized() SupplierInput {
	in.Name = strings.TrimSpace(in.Name)
	return in
}

func (s *supplierService) Create(ctx context.Context, in SupplierInput) (*model.Supplier, error) {
	in = in.normalized()
	if err := validate(in); err != nil {
		return nil, err
	}

	supplier := &model.Supplier{Name: in.Name, Contact: in.Contact, Address: in.Address}
	if err := s.store.Suppliers().Create(ctx, supplier); err != nil {
		return nil, failure(err, "failed to create supplier")
	}

	cache.Invalidate(ctx, s.cache, cache.KeySuppliers)
	return supplier, nil
}

func (s *supplierService) List(ctx context.Context) ([]model.Supplier, error) {
	suppliers, err := cache.Remember(ctx, s.cache, cache.KeySuppliers, s.cacheTTL, s.store.Suppliers().FindAll)
	if err != nil {
		return nil, failure(err, "failed to list suppliers")
	}
	return suppliers, nil
}

func (s *supplierService) Update(ctx context.Context, id uuid.UUID, in SupplierInput) (*model.Supplier, error) {
	in = in.normalized()
	if err := validate(in); err != nil {
		return nil, err
	}

	supplier := &model.Supplier{Name: in.Name, Contact: in.Contact, Address: in.Address}
	supplier.ID = id
	if err := s.store.Suppliers().Update(ctx, supplier); err != nil {
		return nil, failure(notFound(err, "supplier not found"), "failed to update supplier")
	}

	updated, err := s.store.Suppliers().FindByID(ctx, id)
	if err != nil {
		return nil, failure(notFound(err, "supplier not found"), "failed to load supplier")
	}

	cache.Invalidate(ctx, s.cache, cache.KeySuppliers, cache.KeyProducts)
	return updated, nil
}

func (s *supplierService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Suppliers().Delete(ctx, id); err != nil {
		return failure(notFound(err, "supplier not found"), "failed to delete supplier")
	}
	cache.Invalidate(ctx, s.cache, cache.KeySuppliers, cache.KeyProducts)
	return nil
}
