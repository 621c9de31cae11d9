// Package memory is an in-process repository.Store used for local runs and
// tests. Units of work are serialized by one mutex and applied to a cloned
// snapshot that replaces the live data on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"stockflow/internal/model"
	"stockflow/internal/repository"

	"github.com/google/uuid"
)

type data struct {
	seq          int64
	order        map[uuid.UUID]int64
	users        map[uuid.UUID]model.User
	categories   map[uuid.UUID]model.Category
	suppliers    map[uuid.UUID]model.Supplier
	products     map[uuid.UUID]model.Product
	transactions map[uuid.UUID]model.Transaction
	// transaction id -> product id
	links map[uuid.UUID]uuid.UUID
}

func newData() *data {
	return &data{
		order:        make(map[uuid.UUID]int64),
		users:        make(map[uuid.UUID]model.User),
		categories:   make(map[uuid.UUID]model.Category),
		suppliers:    make(map[uuid.UUID]model.Supplier),
		products:     make(map[uuid.UUID]model.Product),
		transactions: make(map[uuid.UUID]model.Transaction),
		links:        make(map[uuid.UUID]uuid.UUID),
	}
}

func (d *data) clone() *data {
	c := &data{
		seq:          d.seq,
		order:        make(map[uuid.UUID]int64, len(d.order)),
		users:        make(map[uuid.UUID]model.User, len(d.users)),
		categories:   make(map[uuid.UUID]model.Category, len(d.categories)),
		suppliers:    make(map[uuid.UUID]model.Supplier, len(d.suppliers)),
		products:     make(map[uuid.UUID]model.Product, len(d.products)),
		transactions: make(map[uuid.UUID]model.Transaction, len(d.transactions)),
		links:        make(map[uuid.UUID]uuid.UUID, len(d.links)),
	}
	for k, v := range d.order {
		c.order[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.transactions {
		c.transactions[k] = v
	}
	for k, v := range d.links {
		c.links[k] = v
	}
	return c
}

// stamp assigns id and timestamps the way BaseModel.BeforeCreate and gorm do.
func (d *data) stamp(base *model.BaseModel) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	now := time.Now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	if base.UpdatedAt.IsZero() {
		base.UpdatedAt = now
	}
	d.seq++
	d.order[base.ID] = d.seq
}

type root struct {
	d *data
}

// Store implements repository.Store in memory.
type Store struct {
	mu   *sync.Mutex
	root *root
	// tx is the working snapshot inside WithinTransaction, nil otherwise.
	tx *data
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, root: &root{d: newData()}}
}

func (s *Store) run(ctx context.Context, fn func(d *data) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.root.d)
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		snapshot := s.tx.clone()
		if err := fn(&Store{mu: s.mu, root: s.root, tx: snapshot}); err != nil {
			return err
		}
		*s.tx = *snapshot
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.root.d.clone()
	if err := fn(&Store{mu: s.mu, root: s.root, tx: snapshot}); err != nil {
		return err
	}
	s.root.d = snapshot
	return nil
}

func (s *Store) Users() repository.UserRepository               { return &userRepo{s} }
func (s *Store) Categories() repository.CategoryRepository      { return &categoryRepo{s} }
func (s *Store) Suppliers() repository.SupplierRepository       { return &supplierRepo{s} }
func (s *Store) Products() repository.ProductRepository         { return &productRepo{s} }
func (s *Store) Transactions() repository.TransactionRepository { return &transactionRepo{s} }

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneID(p *uuid.UUID) *uuid.UUID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
