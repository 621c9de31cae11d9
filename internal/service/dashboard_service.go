package service

import (
	"context"
	"time"

	"stockflow/internal/apperr"
	"stockflow/internal/model"
	"stockflow/internal/repository"
)

const (
	DefaultMovementDays = 7
	maxMovementDays     = 365
)

type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error)
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
	GetLowStock(ctx context.Context) ([]model.ProductResponse, error)
}

type dashboardService struct {
	store             repository.Store
	lowStockThreshold int
}

func NewDashboardService(store repository.Store, lowStockThreshold int) DashboardService {
	return &dashboardService{store: store, lowStockThreshold: lowStockThreshold}
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error) {
	stats, err := s.store.Products().Stats(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, failure(err, "failed to load dashboard stats")
	}
	if stats.TransactionCount, err = s.store.Transactions().Count(ctx); err != nil {
		return nil, failure(err, "failed to count transactions")
	}
	return stats, nil
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	if days <= 0 {
		days = DefaultMovementDays
	}
	if days > maxMovementDays {
		return nil, apperr.Newf(apperr.BadRequest, "days must be at most %d", maxMovementDays)
	}

	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	data, err := s.store.Transactions().StockMovement(ctx, startDate, endDate)
	if err != nil {
		return nil, failure(err, "failed to load stock movement")
	}
	return data, nil
}

func (s *dashboardService) GetLowStock(ctx context.Context) ([]model.ProductResponse, error) {
	products, err := s.store.Products().FindLowStock(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, failure(err, "failed to load low stock products")
	}
	resp := make([]model.ProductResponse, 0, len(products))
	for i := range products {
		resp = append(resp, products[i].ToResponse())
	}
	return resp, nil
}
