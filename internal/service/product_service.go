package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"stockflow/internal/apperr"
	"stockflow/internal/cache"
	"stockflow/internal/metrics"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/internal/retry"
	"stockflow/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateProductInput struct {
	Name       string          `json:"name" validate:"required,max=255"`
	Quantity   int             `json:"quantity" validate:"gte=0"`
	Price      decimal.Decimal `json:"price" validate:"gte=0"`
	CategoryID *uuid.UUID      `json:"categoryId"`
	SupplierID *uuid.UUID      `json:"supplierId"`
}

type UpdateProductInput struct {
	Name       string          `json:"name" validate:"required,max=255"`
	Quantity   int             `json:"quantity" validate:"gte=0"`
	Price      decimal.Decimal `json:"price" validate:"gte=0"`
	CategoryID *uuid.UUID      `json:"categoryId"`
	SupplierID *uuid.UUID      `json:"supplierId"`
}

type ProductService interface {
	Create(ctx context.Context, in CreateProductInput) (*model.Product, error)
	List(ctx context.Context) ([]model.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*model.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	store       repository.Store
	cache       cache.Cache
	cacheTTL    time.Duration
	skuAttempts int
}

func NewProductService(store repository.Store, c cache.Cache, cacheTTL time.Duration, skuAttempts int) ProductService {
	if c == nil {
		c = cache.Nop{}
	}
	if skuAttempts < 1 {
		skuAttempts = 1
	}
	return &productService{store: store, cache: c, cacheTTL: cacheTTL, skuAttempts: skuAttempts}
}

// checkRefs confirms that the referenced category and supplier exist.
func checkRefs(ctx context.Context, tx repository.Store, categoryID, supplierID *uuid.UUID) (*model.Category, error) {
	var category *model.Category
	if categoryID != nil {
		c, err := tx.Categories().FindByID(ctx, *categoryID)
		if err != nil {
			return nil, notFound(err, "category not found")
		}
		category = c
	}
	if supplierID != nil {
		if _, err := tx.Suppliers().FindByID(ctx, *supplierID); err != nil {
			return nil, notFound(err, "supplier not found")
		}
	}
	return category, nil
}

func (s *productService) Create(ctx context.Context, in CreateProductInput) (*model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return nil, err
	}

	cfg := retry.Immediate(s.skuAttempts)
	cfg.OnRetry = func(int, error) { metrics.RecordSKURetry() }

	product, err := retry.Do(ctx, cfg, "product.create", isSKUConflict, func(ctx context.Context) (*model.Product, error) {
		return s.allocateAndInsert(ctx, in)
	})
	if err != nil {
		if isSKUConflict(err) {
			logger.Error(ctx).Err(err).Int("attempts", s.skuAttempts).Msg("SKU allocation exhausted")
			return nil, apperr.Wrap(apperr.Internal, err, "failed to allocate a unique SKU")
		}
		return nil, failure(err, "failed to create product")
	}

	cache.Invalidate(ctx, s.cache, cache.KeyProducts)
	return product, nil
}

// allocateAndInsert numbers the product after the latest SKU with the same
// prefix and inserts it, all in one unit of work.
func (s *productService) allocateAndInsert(ctx context.Context, in CreateProductInput) (*model.Product, error) {
	var created *model.Product
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		category, err := checkRefs(ctx, tx, in.CategoryID, in.SupplierID)
		if err != nil {
			return err
		}

		prefix := FallbackSKUPrefix
		if category != nil {
			prefix = SKUPrefix(category.Name)
		}

		next := 1
		last, err := tx.Products().FindLatestBySKUPrefix(ctx, prefix)
		switch {
		case err == nil:
			next = NextSKUNumber(last.SKU)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		product := &model.Product{
			Name:       in.Name,
			SKU:        FormatSKU(prefix, next),
			Price:      in.Price,
			Quantity:   in.Quantity,
			CategoryID: in.CategoryID,
			SupplierID: in.SupplierID,
		}
		if err := tx.Products().Create(ctx, product); err != nil {
			return err
		}
		created = product
		return nil
	})
	return created, err
}

func (s *productService) List(ctx context.Context) ([]model.ProductResponse, error) {
	products, err := cache.Remember(ctx, s.cache, cache.KeyProducts, s.cacheTTL, func(ctx context.Context) ([]model.ProductResponse, error) {
		products, err := s.store.Products().FindAll(ctx)
		if err != nil {
			return nil, err
		}
		resp := make([]model.ProductResponse, 0, len(products))
		for i := range products {
			resp = append(resp, products[i].ToResponse())
		}
		return resp, nil
	})
	if err != nil {
		return nil, failure(err, "failed to list products")
	}
	return products, nil
}

func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, failure(notFound(err, "product not found"), "failed to load product")
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return nil, err
	}

	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		// lock against concurrent stock movements
		product, err := tx.Products().FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "product not found")
		}
		if _, err := checkRefs(ctx, tx, in.CategoryID, in.SupplierID); err != nil {
			return err
		}

		product.Name = in.Name
		product.Price = in.Price
		product.Quantity = in.Quantity
		product.CategoryID = in.CategoryID
		product.SupplierID = in.SupplierID
		return tx.Products().Update(ctx, product)
	})
	if err != nil {
		return nil, failure(notFound(err, "product not found"), "failed to update product")
	}

	cache.Invalidate(ctx, s.cache, cache.KeyProducts)
	return s.GetByID(ctx, id)
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Products().Delete(ctx, id); err != nil {
		return failure(notFound(err, "product not found"), "failed to delete product")
	}
	cache.Invalidate(ctx, s.cache, cache.KeyProducts)
	return nil
}
