package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"stockflow/internal/model"
	"stockflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errForeignKey = errors.New("foreign key violation")

func newestFirst[T any](d *data, items []T, id func(T) uuid.UUID) {
	sort.SliceStable(items, func(i, j int) bool {
		return d.order[id(items[i])] > d.order[id(items[j])]
	})
}

type userRepo struct{ s *Store }

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var out *model.User
	err := r.s.run(ctx, func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func findUserByExternalID(d *data, externalID string) (model.User, bool) {
	for _, u := range d.users {
		if u.ExternalID == externalID {
			return u, true
		}
	}
	return model.User{}, false
}

func (r *userRepo) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	var out *model.User
	err := r.s.run(ctx, func(d *data) error {
		u, ok := findUserByExternalID(d, externalID)
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var out *model.User
	err := r.s.run(ctx, func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				u := u
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepo) FindAll(ctx context.Context) ([]model.User, error) {
	out := []model.User{}
	err := r.s.run(ctx, func(d *data) error {
		for _, u := range d.users {
			out = append(out, u)
		}
		newestFirst(d, out, func(u model.User) uuid.UUID { return u.ID })
		return nil
	})
	return out, err
}

func (r *userRepo) UpsertByExternalID(ctx context.Context, user *model.User) error {
	return r.s.run(ctx, func(d *data) error {
		if existing, ok := findUserByExternalID(d, user.ExternalID); ok {
			existing.Email = user.Email
			existing.Role = user.Role
			existing.UpdatedAt = time.Now()
			d.users[existing.ID] = existing
			*user = existing
			return nil
		}
		d.stamp(&user.BaseModel)
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	return r.s.run(ctx, func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.Role = role
		u.UpdatedAt = time.Now()
		d.users[id] = u
		return nil
	})
}

func deleteUser(d *data, id uuid.UUID) {
	delete(d.users, id)
	delete(d.order, id)
	for tid, t := range d.transactions {
		if t.UserID != nil && *t.UserID == id {
			t.UserID = nil
			d.transactions[tid] = t
		}
	}
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.users[id]; !ok {
			return repository.ErrNotFound
		}
		deleteUser(d, id)
		return nil
	})
}

func (r *userRepo) DeleteByExternalID(ctx context.Context, externalID string) error {
	return r.s.run(ctx, func(d *data) error {
		u, ok := findUserByExternalID(d, externalID)
		if !ok {
			return repository.ErrNotFound
		}
		deleteUser(d, u.ID)
		return nil
	})
}

type categoryRepo struct{ s *Store }

func categoryNameTaken(d *data, name string, except uuid.UUID) bool {
	for id, c := range d.categories {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

func categoryConflict() error {
	return &repository.UniqueViolation{Constraint: "idx_categories_name", Field: "name"}
}

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	return r.s.run(ctx, func(d *data) error {
		if categoryNameTaken(d, category.Name, uuid.Nil) {
			return categoryConflict()
		}
		d.stamp(&category.BaseModel)
		d.categories[category.ID] = *category
		return nil
	})
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var out *model.Category
	err := r.s.run(ctx, func(d *data) error {
		c, ok := d.categories[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *categoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var out *model.Category
	err := r.s.run(ctx, func(d *data) error {
		for _, c := range d.categories {
			if c.Name == name {
				c := c
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *categoryRepo) FindAll(ctx context.Context) ([]model.Category, error) {
	out := []model.Category{}
	err := r.s.run(ctx, func(d *data) error {
		for _, c := range d.categories {
			out = append(out, c)
		}
		newestFirst(d, out, func(c model.Category) uuid.UUID { return c.ID })
		return nil
	})
	return out, err
}

func (r *categoryRepo) Update(ctx context.Context, category *model.Category) error {
	return r.s.run(ctx, func(d *data) error {
		c, ok := d.categories[category.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if categoryNameTaken(d, category.Name, category.ID) {
			return categoryConflict()
		}
		c.Name = category.Name
		c.UpdatedAt = time.Now()
		d.categories[c.ID] = c
		*category = c
		return nil
	})
}

func (r *categoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.categories[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.categories, id)
		delete(d.order, id)
		for pid, p := range d.products {
			if p.CategoryID != nil && *p.CategoryID == id {
				p.CategoryID = nil
				d.products[pid] = p
			}
		}
		return nil
	})
}

type supplierRepo struct{ s *Store }

func (r *supplierRepo) Create(ctx context.Context, supplier *model.Supplier) error {
	return r.s.run(ctx, func(d *data) error {
		d.stamp(&supplier.BaseModel)
		stored := *supplier
		stored.Contact = cloneString(supplier.Contact)
		stored.Address = cloneString(supplier.Address)
		d.suppliers[supplier.ID] = stored
		return nil
	})
}

func (r *supplierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	var out *model.Supplier
	err := r.s.run(ctx, func(d *data) error {
		s, ok := d.suppliers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *supplierRepo) FindAll(ctx context.Context) ([]model.Supplier, error) {
	out := []model.Supplier{}
	err := r.s.run(ctx, func(d *data) error {
		for _, s := range d.suppliers {
			out = append(out, s)
		}
		newestFirst(d, out, func(s model.Supplier) uuid.UUID { return s.ID })
		return nil
	})
	return out, err
}

func (r *supplierRepo) Update(ctx context.Context, supplier *model.Supplier) error {
	return r.s.run(ctx, func(d *data) error {
		s, ok := d.suppliers[supplier.ID]
		if !ok {
			return repository.ErrNotFound
		}
		s.Name = supplier.Name
		s.Contact = cloneString(supplier.Contact)
		s.Address = cloneString(supplier.Address)
		s.UpdatedAt = time.Now()
		d.suppliers[s.ID] = s
		return nil
	})
}

func (r *supplierRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.suppliers[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.suppliers, id)
		delete(d.order, id)
		for pid, p := range d.products {
			if p.SupplierID != nil && *p.SupplierID == id {
				p.SupplierID = nil
				d.products[pid] = p
			}
		}
		return nil
	})
}

type productRepo struct{ s *Store }

func checkProductRefs(d *data, p *model.Product) error {
	if p.CategoryID != nil {
		if _, ok := d.categories[*p.CategoryID]; !ok {
			return errForeignKey
		}
	}
	if p.SupplierID != nil {
		if _, ok := d.suppliers[*p.SupplierID]; !ok {
			return errForeignKey
		}
	}
	return nil
}

// withRelations attaches copies of the category and supplier rows.
func withRelations(d *data, p model.Product) model.Product {
	p.Category, p.Supplier = nil, nil
	if p.CategoryID != nil {
		if c, ok := d.categories[*p.CategoryID]; ok {
			p.Category = &c
		}
	}
	if p.SupplierID != nil {
		if s, ok := d.suppliers[*p.SupplierID]; ok {
			p.Supplier = &s
		}
	}
	return p
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.s.run(ctx, func(d *data) error {
		for _, p := range d.products {
			if p.SKU == product.SKU {
				return &repository.UniqueViolation{Constraint: "idx_products_sku", Field: "sku"}
			}
		}
		if product.Quantity < 0 {
			return errors.New("check constraint chk_products_quantity violated")
		}
		if err := checkProductRefs(d, product); err != nil {
			return err
		}
		d.stamp(&product.BaseModel)
		stored := *product
		stored.CategoryID = cloneID(product.CategoryID)
		stored.SupplierID = cloneID(product.SupplierID)
		stored.Category, stored.Supplier = nil, nil
		d.products[product.ID] = stored
		return nil
	})
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var out *model.Product
	err := r.s.run(ctx, func(d *data) error {
		p, ok := d.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		p = withRelations(d, p)
		out = &p
		return nil
	})
	return out, err
}

// FindByIDForUpdate needs no row lock: the unit of work already holds the store mutex.
func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var out *model.Product
	err := r.s.run(ctx, func(d *data) error {
		p, ok := d.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	out := []model.Product{}
	err := r.s.run(ctx, func(d *data) error {
		for _, p := range d.products {
			out = append(out, withRelations(d, p))
		}
		newestFirst(d, out, func(p model.Product) uuid.UUID { return p.ID })
		return nil
	})
	return out, err
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.s.run(ctx, func(d *data) error {
		p, ok := d.products[product.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if product.Quantity < 0 {
			return errors.New("check constraint chk_products_quantity violated")
		}
		if err := checkProductRefs(d, product); err != nil {
			return err
		}
		p.Name = product.Name
		p.Price = product.Price
		p.Quantity = product.Quantity
		p.CategoryID = cloneID(product.CategoryID)
		p.SupplierID = cloneID(product.SupplierID)
		p.UpdatedAt = time.Now()
		d.products[p.ID] = p
		return nil
	})
}

func (r *productRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.s.run(ctx, func(d *data) error {
		p, ok := d.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		if quantity < 0 {
			return errors.New("check constraint chk_products_quantity violated")
		}
		p.Quantity = quantity
		p.UpdatedAt = time.Now()
		d.products[id] = p
		return nil
	})
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.products[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.products, id)
		delete(d.order, id)
		for tid, pid := range d.links {
			if pid == id {
				delete(d.links, tid)
			}
		}
		return nil
	})
}

func (r *productRepo) FindLatestBySKUPrefix(ctx context.Context, prefix string) (*model.Product, error) {
	var out *model.Product
	err := r.s.run(ctx, func(d *data) error {
		var latest int64
		for _, p := range d.products {
			if strings.HasPrefix(p.SKU, prefix+"-") && d.order[p.ID] > latest {
				p := p
				latest = d.order[p.ID]
				out = &p
			}
		}
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r *productRepo) Stats(ctx context.Context, lowStockThreshold int) (*repository.DashboardStats, error) {
	stats := &repository.DashboardStats{TotalValuation: decimal.Zero}
	err := r.s.run(ctx, func(d *data) error {
		for _, p := range d.products {
			stats.TotalProducts++
			if p.Quantity < lowStockThreshold {
				stats.LowStockCount++
			}
			stats.TotalValuation = stats.TotalValuation.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Quantity))))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *productRepo) FindLowStock(ctx context.Context, threshold int) ([]model.Product, error) {
	out := []model.Product{}
	err := r.s.run(ctx, func(d *data) error {
		for _, p := range d.products {
			if p.Quantity < threshold {
				out = append(out, withRelations(d, p))
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Quantity != out[j].Quantity {
				return out[i].Quantity < out[j].Quantity
			}
			return out[i].Name < out[j].Name
		})
		return nil
	})
	return out, err
}

type transactionRepo struct{ s *Store }

func hydrate(d *data, t model.Transaction) model.Transaction {
	t.Products = nil
	t.User = nil
	if pid, ok := d.links[t.ID]; ok {
		if p, ok := d.products[pid]; ok {
			t.Products = []model.Product{p}
		}
	}
	if t.UserID != nil {
		if u, ok := d.users[*t.UserID]; ok {
			t.User = &u
		}
	}
	return t
}

func (r *transactionRepo) Create(ctx context.Context, t *model.Transaction, productID uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.products[productID]; !ok {
			return errForeignKey
		}
		if t.UserID != nil {
			if _, ok := d.users[*t.UserID]; !ok {
				return errForeignKey
			}
		}
		d.stamp(&t.BaseModel)
		stored := *t
		stored.Note = cloneString(t.Note)
		stored.UserID = cloneID(t.UserID)
		stored.Products, stored.User = nil, nil
		d.transactions[t.ID] = stored
		d.links[t.ID] = productID
		return nil
	})
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var out *model.Transaction
	err := r.s.run(ctx, func(d *data) error {
		t, ok := d.transactions[id]
		if !ok {
			return repository.ErrNotFound
		}
		t = hydrate(d, t)
		out = &t
		return nil
	})
	return out, err
}

func (r *transactionRepo) FindAll(ctx context.Context) ([]model.Transaction, error) {
	out := []model.Transaction{}
	err := r.s.run(ctx, func(d *data) error {
		for _, t := range d.transactions {
			out = append(out, hydrate(d, t))
		}
		newestFirst(d, out, func(t model.Transaction) uuid.UUID { return t.ID })
		return nil
	})
	return out, err
}

func (r *transactionRepo) Update(ctx context.Context, t *model.Transaction, productID uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		stored, ok := d.transactions[t.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if _, ok := d.products[productID]; !ok {
			return errForeignKey
		}
		stored.Type = t.Type
		stored.Quantity = t.Quantity
		stored.Note = cloneString(t.Note)
		stored.UpdatedAt = time.Now()
		d.transactions[t.ID] = stored
		d.links[t.ID] = productID
		return nil
	})
}

func (r *transactionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.transactions[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.transactions, id)
		delete(d.links, id)
		delete(d.order, id)
		return nil
	})
}

func (r *transactionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.run(ctx, func(d *data) error {
		n = int64(len(d.transactions))
		return nil
	})
	return n, err
}

func (r *transactionRepo) StockMovement(ctx context.Context, startDate, endDate time.Time) ([]repository.StockMovementData, error) {
	out := []repository.StockMovementData{}
	err := r.s.run(ctx, func(d *data) error {
		byDay := make(map[string]*repository.StockMovementData)
		for _, t := range d.transactions {
			if t.CreatedAt.Before(startDate) || t.CreatedAt.After(endDate) {
				continue
			}
			day := t.CreatedAt.Format("2006-01-02")
			row, ok := byDay[day]
			if !ok {
				row = &repository.StockMovementData{Date: day}
				byDay[day] = row
			}
			if t.Type == model.TxIn {
				row.Inbound += t.Quantity
			} else {
				row.Outbound += t.Quantity
			}
		}
		for _, row := range byDay {
			out = append(out, *row)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
		return nil
	})
	return out, err
}
