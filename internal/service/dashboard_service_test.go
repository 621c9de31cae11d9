package service_test

import (
	"testing"
	"time"

	"stockflow/internal/apperr"
	"stockflow/internal/model"
	"stockflow/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	txs := service.NewTransactionService(f.store, nil, nil, service.TransactionPolicy{})
	svc := service.NewDashboardService(f.store, 10)

	low := f.seedProduct(t, "Low", "GEN-001", 2)
	f.seedProduct(t, "Plenty", "GEN-002", 50)

	_, err := txs.Create(f.ctx, f.staff, movement(model.TxIn, low, 3))
	require.NoError(t, err)
	_, err = txs.Create(f.ctx, f.staff, movement(model.TxOut, low, 1))
	require.NoError(t, err)

	stats, err := svc.GetDashboardStats(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalProducts)
	assert.EqualValues(t, 1, stats.LowStockCount)
	assert.EqualValues(t, 2, stats.TransactionCount)
	// (4 + 50) units at 5 each
	assert.True(t, decimal.NewFromInt(270).Equal(stats.TotalValuation), stats.TotalValuation.String())

	chart, err := svc.GetStockMovement(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, chart, 1)
	assert.Equal(t, time.Now().Format("2006-01-02"), chart[0].Date)
	assert.Equal(t, 3, chart[0].Inbound)
	assert.Equal(t, 1, chart[0].Outbound)

	_, err = svc.GetStockMovement(f.ctx, 400)
	assert.Equal(t, apperr.BadRequest, apperr.CodeOf(err))

	lows, err := svc.GetLowStock(f.ctx)
	require.NoError(t, err)
	require.Len(t, lows, 1)
	assert.Equal(t, "Low", lows[0].Name)
	assert.Equal(t, 4, lows[0].Quantity)
}
