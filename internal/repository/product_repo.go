package repository

import (
	"context"
	"strings"

	"stockflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error)
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Preload("Category").Preload("Supplier").First(&product, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Supplier").
		Order("created_at DESC").
		Find(&products).Error
	return products, translate(err)
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"name":        product.Name,
			"price":       product.Price,
			"quantity":    product.Quantity,
			"category_id": product.CategoryID,
			"supplier_id": product.SupplierID,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateQuantity must run on the unit of work that locked the row.
func (r *productRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Update("quantity", quantity)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) FindLatestBySKUPrefix(ctx context.Context, prefix string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("sku LIKE ?", escapeLike(prefix)+"-%").
		Order("created_at DESC").
		Order("sku DESC").
		First(&product).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) Stats(ctx context.Context, lowStockThreshold int) (*DashboardStats, error) {
	var stats DashboardStats
	row := r.db.WithContext(ctx).Model(&model.Product{}).
		Select("COUNT(*), COUNT(*) FILTER (WHERE quantity < ?), COALESCE(SUM(price * quantity), 0)", lowStockThreshold).
		Row()
	if err := row.Scan(&stats.TotalProducts, &stats.LowStockCount, &stats.TotalValuation); err != nil {
		return nil, translate(err)
	}
	return &stats, nil
}

func (r *productRepo) FindLowStock(ctx context.Context, threshold int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Supplier").
		Where("quantity < ?", threshold).
		Order("quantity ASC").
		Order("name ASC").
		Find(&products).Error
	return products, translate(err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards so the prefix matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
