package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(name, sku string, qty int) *model.Product {
	return &model.Product{Name: name, SKU: sku, Price: decimal.NewFromInt(2), Quantity: qty}
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	errStop := errors.New("stop")

	err := store.WithinTransaction(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Categories().Create(ctx, &model.Category{Name: "tools"}))
		return errStop
	})
	assert.ErrorIs(t, err, errStop)

	_, err = store.Categories().FindByName(ctx, "tools")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithinTransaction_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	err := store.WithinTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Categories().Create(ctx, &model.Category{Name: "tools"}); err != nil {
			return err
		}
		// reads inside the unit of work see its own writes
		_, err := tx.Categories().FindByName(ctx, "tools")
		return err
	})
	require.NoError(t, err)

	c, err := store.Categories().FindByName(ctx, "tools")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestWithinTransaction_NestedRollbackKeepsOuterWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	err := store.WithinTransaction(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Categories().Create(ctx, &model.Category{Name: "outer"}))
		inner := tx.WithinTransaction(ctx, func(inner repository.Store) error {
			require.NoError(t, inner.Categories().Create(ctx, &model.Category{Name: "inner"}))
			return errors.New("inner failed")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	_, err = store.Categories().FindByName(ctx, "outer")
	assert.NoError(t, err)
	_, err = store.Categories().FindByName(ctx, "inner")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUniqueViolations(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Categories().Create(ctx, &model.Category{Name: "tools"}))
	err := store.Categories().Create(ctx, &model.Category{Name: "tools"})
	assert.True(t, repository.IsUniqueViolation(err, "name"))

	require.NoError(t, store.Products().Create(ctx, newProduct("Hammer", "TOO-001", 1)))
	err = store.Products().Create(ctx, newProduct("Saw", "TOO-001", 1))
	assert.True(t, repository.IsUniqueViolation(err, "sku"))
	assert.False(t, repository.IsUniqueViolation(err, "name"))
}

func TestProductConstraints(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	assert.Error(t, store.Products().Create(ctx, newProduct("Hammer", "TOO-001", -1)))

	missing := uuid.New()
	p := newProduct("Hammer", "TOO-001", 1)
	p.CategoryID = &missing
	assert.Error(t, store.Products().Create(ctx, p))

	p = newProduct("Hammer", "TOO-001", 1)
	require.NoError(t, store.Products().Create(ctx, p))
	assert.Error(t, store.Products().UpdateQuantity(ctx, p.ID, -3))
	assert.ErrorIs(t, store.Products().UpdateQuantity(ctx, uuid.New(), 3), repository.ErrNotFound)
}

func TestDeleteCategoryAndSupplierDetachProducts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	category := &model.Category{Name: "tools"}
	supplier := &model.Supplier{Name: "Acme"}
	require.NoError(t, store.Categories().Create(ctx, category))
	require.NoError(t, store.Suppliers().Create(ctx, supplier))

	p := newProduct("Hammer", "TOO-001", 1)
	p.CategoryID = &category.ID
	p.SupplierID = &supplier.ID
	require.NoError(t, store.Products().Create(ctx, p))

	got, err := store.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "tools", got.Category.Name)
	require.NotNil(t, got.Supplier)

	require.NoError(t, store.Categories().Delete(ctx, category.ID))
	require.NoError(t, store.Suppliers().Delete(ctx, supplier.ID))

	got, err = store.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
	assert.Nil(t, got.Category)
	assert.Nil(t, got.SupplierID)
	assert.Nil(t, got.Supplier)
}

func TestDeleteUserDetachesTransactions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	user := &model.User{ExternalID: "user_1", Email: "a@example.com", Role: model.RoleStaff}
	require.NoError(t, store.Users().UpsertByExternalID(ctx, user))
	p := newProduct("Hammer", "TOO-001", 1)
	require.NoError(t, store.Products().Create(ctx, p))

	tx := &model.Transaction{Type: model.TxIn, Quantity: 1, UserID: &user.ID}
	require.NoError(t, store.Transactions().Create(ctx, tx, p.ID))

	got, err := store.Transactions().FindByID(ctx, tx.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "a@example.com", got.User.Email)
	assert.Equal(t, p.ID, got.ProductID())

	require.NoError(t, store.Users().DeleteByExternalID(ctx, "user_1"))

	got, err = store.Transactions().FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, got.UserID)
	assert.Nil(t, got.User)
}

func TestDeleteProductUnlinksTransactions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	p := newProduct("Hammer", "TOO-001", 1)
	require.NoError(t, store.Products().Create(ctx, p))
	tx := &model.Transaction{Type: model.TxIn, Quantity: 1}
	require.NoError(t, store.Transactions().Create(ctx, tx, p.ID))

	require.NoError(t, store.Products().Delete(ctx, p.ID))

	got, err := store.Transactions().FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Products)
	assert.Equal(t, uuid.Nil, got.ProductID())
}

func TestUpsertByExternalID(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	first := &model.User{ExternalID: "user_1", Email: "old@example.com", Role: model.RoleViewer}
	require.NoError(t, store.Users().UpsertByExternalID(ctx, first))

	second := &model.User{ExternalID: "user_1", Email: "new@example.com", Role: model.RoleAdmin}
	require.NoError(t, store.Users().UpsertByExternalID(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	users, err := store.Users().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "new@example.com", users[0].Email)
	assert.Equal(t, model.RoleAdmin, users[0].Role)

	found, err := store.Users().FindByEmail(ctx, "NEW@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestFindLatestBySKUPrefix(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.Products().FindLatestBySKUPrefix(ctx, "ELE")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Products().Create(ctx, newProduct("a", "ELE-001", 1)))
	require.NoError(t, store.Products().Create(ctx, newProduct("b", "ELE-002", 1)))
	require.NoError(t, store.Products().Create(ctx, newProduct("c", "ELEC-009", 1)))

	latest, err := store.Products().FindLatestBySKUPrefix(ctx, "ELE")
	require.NoError(t, err)
	assert.Equal(t, "ELE-002", latest.SKU)
}

func TestListsAreNewestFirstAndNeverNil(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	products, err := store.Products().FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	for _, sku := range []string{"GEN-001", "GEN-002", "GEN-003"} {
		require.NoError(t, store.Products().Create(ctx, newProduct(sku, sku, 1)))
	}
	products, err = store.Products().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "GEN-003", products[0].SKU)
	assert.Equal(t, "GEN-001", products[2].SKU)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	cheap := newProduct("cheap", "GEN-001", 3)
	cheap.Price = decimal.RequireFromString("1.50")
	pricey := newProduct("pricey", "GEN-002", 20)
	pricey.Price = decimal.RequireFromString("10.00")
	require.NoError(t, store.Products().Create(ctx, cheap))
	require.NoError(t, store.Products().Create(ctx, pricey))

	stats, err := store.Products().Stats(ctx, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalProducts)
	assert.EqualValues(t, 1, stats.LowStockCount)
	assert.True(t, decimal.RequireFromString("204.50").Equal(stats.TotalValuation))

	low, err := store.Products().FindLowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "cheap", low[0].Name)
}

func TestConcurrentUnitsOfWorkAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p := newProduct("Hammer", "TOO-001", 0)
	require.NoError(t, store.Products().Create(ctx, p))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithinTransaction(ctx, func(tx repository.Store) error {
				current, err := tx.Products().FindByIDForUpdate(ctx, p.ID)
				if err != nil {
					return err
				}
				return tx.Products().UpdateQuantity(ctx, p.ID, current.Quantity+1)
			})
		}()
	}
	wg.Wait()

	got, err := store.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Quantity)
}
