package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stockflow/internal/events"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx    context.Context
	store  *memory.Store
	admin  *model.User
	staff  *model.User
	viewer *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), store: memory.NewStore()}
	f.admin = f.seedUser(t, "user_admin", "admin@example.com", model.RoleAdmin)
	f.staff = f.seedUser(t, "user_staff", "staff@example.com", model.RoleStaff)
	f.viewer = f.seedUser(t, "user_viewer", "viewer@example.com", model.RoleViewer)
	return f
}

func (f *fixture) seedUser(t *testing.T, externalID, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{ExternalID: externalID, Email: email, Role: role}
	require.NoError(t, f.store.Users().UpsertByExternalID(f.ctx, u))
	return u
}

func (f *fixture) seedCategory(t *testing.T, name string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name}
	require.NoError(t, f.store.Categories().Create(f.ctx, c))
	return c
}

func (f *fixture) seedProduct(t *testing.T, name, sku string, qty int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, SKU: sku, Price: decimal.NewFromInt(5), Quantity: qty}
	require.NoError(t, f.store.Products().Create(f.ctx, p))
	return p
}

func (f *fixture) quantity(t *testing.T, p *model.Product) int {
	t.Helper()
	got, err := f.store.Products().FindByID(f.ctx, p.ID)
	require.NoError(t, err)
	return got.Quantity
}

func (f *fixture) transactionCount(t *testing.T) int64 {
	t.Helper()
	n, err := f.store.Transactions().Count(f.ctx)
	require.NoError(t, err)
	return n
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.StockEvent
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, event events.StockEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingNotifier) all() []events.StockEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.StockEvent(nil), r.events...)
}

// memCache is a map-backed cache.Cache that ignores TTLs.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memCache) has(key string) bool {
	_, ok, _ := c.Get(context.Background(), key)
	return ok
}

// conflictingStore makes the first n product inserts fail with a unique
// violation on field, as a concurrent writer would.
type conflictingStore struct {
	repository.Store
	field     string
	remaining *int32
	creates   *int32
}

func newConflictingStore(inner repository.Store, field string, n int32) *conflictingStore {
	var creates int32
	return &conflictingStore{Store: inner, field: field, remaining: &n, creates: &creates}
}

func (s *conflictingStore) Products() repository.ProductRepository {
	return &conflictingProducts{ProductRepository: s.Store.Products(), store: s}
}

func (s *conflictingStore) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTransaction(ctx, func(tx repository.Store) error {
		return fn(&conflictingStore{Store: tx, field: s.field, remaining: s.remaining, creates: s.creates})
	})
}

type conflictingProducts struct {
	repository.ProductRepository
	store *conflictingStore
}

func (p *conflictingProducts) Create(ctx context.Context, product *model.Product) error {
	atomic.AddInt32(p.store.creates, 1)
	if atomic.AddInt32(p.store.remaining, -1) >= 0 {
		return &repository.UniqueViolation{Constraint: "idx_products_" + p.store.field, Field: p.store.field}
	}
	return p.ProductRepository.Create(ctx, product)
}
