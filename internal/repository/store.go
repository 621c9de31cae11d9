package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockflow/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNotFound is returned by every repository when a row does not exist.
var ErrNotFound = errors.New("record not found")

const pgUniqueViolation = "23505"

// UniqueViolation reports an insert or update rejected by a unique index.
type UniqueViolation struct {
	Constraint string
	Field      string
	Err        error
}

func (e *UniqueViolation) Error() string {
	return fmt.Sprintf("unique violation on %s (%s)", e.Field, e.Constraint)
}

func (e *UniqueViolation) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err is a unique violation on field.
func IsUniqueViolation(err error, field string) bool {
	var uv *UniqueViolation
	return errors.As(err, &uv) && uv.Field == field
}

// constraint name -> logical field
var uniqueFields = map[string]string{
	"idx_products_sku":      "sku",
	"idx_categories_name":   "name",
	"idx_users_external_id": "external_id",
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &UniqueViolation{Constraint: pgErr.ConstraintName, Field: uniqueFields[pgErr.ConstraintName], Err: err}
	}
	return err
}

// Store groups the repositories that share one connection or one open
// database transaction.
type Store interface {
	Users() UserRepository
	Categories() CategoryRepository
	Suppliers() SupplierRepository
	Products() ProductRepository
	Transactions() TransactionRepository

	// WithinTransaction runs fn in a unit of work. A nil return commits,
	// anything else rolls back and is returned unchanged.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindAll(ctx context.Context) ([]model.User, error)
	UpsertByExternalID(ctx context.Context, user *model.User) error
	UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByExternalID(ctx context.Context, externalID string) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	FindByName(ctx context.Context, name string) (*model.Category, error)
	FindAll(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type SupplierRepository interface {
	Create(ctx context.Context, supplier *model.Supplier) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	FindAll(ctx context.Context) ([]model.Supplier, error)
	Update(ctx context.Context, supplier *model.Supplier) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// FindByIDForUpdate locks the row until the surrounding unit of work ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindAll(ctx context.Context) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	Delete(ctx context.Context, id uuid.UUID) error
	// FindLatestBySKUPrefix returns the most recently created product whose
	// SKU starts with prefix + "-".
	FindLatestBySKUPrefix(ctx context.Context, prefix string) (*model.Product, error)
	Stats(ctx context.Context, lowStockThreshold int) (*DashboardStats, error)
	FindLowStock(ctx context.Context, threshold int) ([]model.Product, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, t *model.Transaction, productID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	FindAll(ctx context.Context) ([]model.Transaction, error)
	// Update rewrites type, quantity and note and moves the transaction to productID.
	Update(ctx context.Context, t *model.Transaction, productID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	StockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
}

// StockMovementData is one day of the stock movement chart
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// DashboardStats for the overview cards
type DashboardStats struct {
	TotalProducts    int64           `json:"totalProducts"`
	LowStockCount    int64           `json:"lowStockCount"`
	TotalValuation   decimal.Decimal `json:"totalValuation"`
	TransactionCount int64           `json:"transactionCount"`
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository               { return NewUserRepo(s.db) }
func (s *gormStore) Categories() CategoryRepository      { return NewCategoryRepo(s.db) }
func (s *gormStore) Suppliers() SupplierRepository       { return NewSupplierRepo(s.db) }
func (s *gormStore) Products() ProductRepository         { return NewProductRepo(s.db) }
func (s *gormStore) Transactions() TransactionRepository { return NewTransactionRepo(s.db) }

func (s *gormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// AutoMigrate creates or updates the schema for every model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Supplier{},
		&model.Product{},
		&model.Transaction{},
	)
}
