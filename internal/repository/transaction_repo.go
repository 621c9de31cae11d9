package repository

import (
	"context"
	"time"

	"stockflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const transactionProductsTable = "transaction_products"

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) link(ctx context.Context, transactionID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Table(transactionProductsTable).Create(map[string]interface{}{
		"transaction_id": transactionID,
		"product_id":     productID,
	}).Error
}

func (r *transactionRepo) Create(ctx context.Context, t *model.Transaction, productID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error; err != nil {
		return translate(err)
	}
	return translate(r.link(ctx, t.ID, productID))
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	err := r.db.WithContext(ctx).Preload("Products").Preload("User").First(&transaction, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &transaction, nil
}

func (r *transactionRepo) FindAll(ctx context.Context) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.WithContext(ctx).
		Preload("Products").
		Preload("User").
		Order("created_at DESC").
		Find(&transactions).Error
	return transactions, translate(err)
}

func (r *transactionRepo) Update(ctx context.Context, t *model.Transaction, productID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"type":     t.Type,
			"quantity": t.Quantity,
			"note":     t.Note,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	err := r.db.WithContext(ctx).
		Exec("DELETE FROM "+transactionProductsTable+" WHERE transaction_id = ?", t.ID).Error
	if err != nil {
		return translate(err)
	}
	return translate(r.link(ctx, t.ID, productID))
}

func (r *transactionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Transaction{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *transactionRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).Count(&count).Error
	return count, translate(err)
}

func (r *transactionRepo) StockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	results := []StockMovementData{}

	// Aggregate transactions per day
	rows, err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select(`
			TO_CHAR(created_at, 'YYYY-MM-DD') as date,
			COALESCE(SUM(CASE WHEN type = 'IN' THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN type = 'OUT' THEN quantity ELSE 0 END), 0) as outbound
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}
