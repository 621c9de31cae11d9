package service

import (
	"context"
	"math"
	"sort"

	"stockflow/internal/apperr"
	"stockflow/internal/cache"
	"stockflow/internal/events"
	"stockflow/internal/metrics"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/pkg/logger"

	"github.com/google/uuid"
)

type TransactionInput struct {
	Type      model.TransactionType `json:"typeTransaction" validate:"required,oneof=IN OUT"`
	ProductID uuid.UUID             `json:"productId" validate:"uuid_required"`
	Quantity  int                   `json:"quantity" validate:"required,gt=0"`
	Note      *string               `json:"note" validate:"omitempty,max=1000"`
}

// TransactionPolicy selects how edits and deletions treat stock that an
// earlier movement already applied.
type TransactionPolicy struct {
	// ReverseOnUpdate undoes the original movement before applying the edited one.
	ReverseOnUpdate bool
	// RestoreOnDelete undoes the movement of a deleted transaction.
	RestoreOnDelete bool
}

type TransactionService interface {
	Create(ctx context.Context, actor *model.User, in TransactionInput) (*model.Transaction, error)
	List(ctx context.Context) ([]model.TransactionResponse, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, in TransactionInput) (*model.Transaction, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
}

type transactionService struct {
	store    repository.Store
	notifier events.Notifier
	cache    cache.Cache
	policy   TransactionPolicy
}

func NewTransactionService(store repository.Store, notifier events.Notifier, c cache.Cache, policy TransactionPolicy) TransactionService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	if c == nil {
		c = cache.Nop{}
	}
	return &transactionService{store: store, notifier: notifier, cache: c, policy: policy}
}

// lockProducts row-locks every distinct id in a stable order so two units of
// work touching the same pair cannot deadlock.
func lockProducts(ctx context.Context, tx repository.Store, ids ...uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	distinct := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id != uuid.Nil && !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i].String() < distinct[j].String() })

	locked := make(map[uuid.UUID]*model.Product, len(distinct))
	for _, id := range distinct {
		p, err := tx.Products().FindByIDForUpdate(ctx, id)
		if err != nil {
			return nil, notFound(err, "Product with ID "+id.String()+" not found.")
		}
		locked[id] = p
	}
	return locked, nil
}

// applyMovement computes the stock after moving qty units, rejecting
// movements that would take stock below zero.
func applyMovement(p *model.Product, t model.TransactionType, qty int) (int, error) {
	if t == model.TxOut && p.Quantity < qty {
		return 0, apperr.Newf(apperr.BadRequest,
			"Insufficient stock. Only %d units available for product %s.", p.Quantity, p.Name)
	}
	if t == model.TxIn && qty > math.MaxInt-p.Quantity {
		return 0, stockLimit(p, qty)
	}
	return t.Apply(p.Quantity, qty), nil
}

func stockLimit(p *model.Product, qty int) error {
	return apperr.Newf(apperr.BadRequest,
		"Stock limit exceeded. Cannot add %d units to product %s holding %d.", qty, p.Name, p.Quantity)
}

// reverseMovement undoes a recorded movement on p.
func reverseMovement(p *model.Product, t *model.Transaction) (int, error) {
	if t.Type == model.TxOut && t.Quantity > math.MaxInt-p.Quantity {
		return 0, stockLimit(p, t.Quantity)
	}
	restored := t.Type.Reverse(p.Quantity, t.Quantity)
	if restored < 0 {
		return 0, apperr.Newf(apperr.BadRequest,
			"Cannot reverse transaction. Only %d units available for product %s.", p.Quantity, p.Name)
	}
	return restored, nil
}

func actorID(actor *model.User) *uuid.UUID {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}

func (s *transactionService) Create(ctx context.Context, actor *model.User, in TransactionInput) (*model.Transaction, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	var (
		created *model.Transaction
		product *model.Product
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		locked, err := lockProducts(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}
		p := locked[in.ProductID]

		newQuantity, err := applyMovement(p, in.Type, in.Quantity)
		if err != nil {
			return err
		}

		t := &model.Transaction{
			Type:     in.Type,
			Quantity: in.Quantity,
			Note:     in.Note,
			UserID:   actorID(actor),
		}
		if err := tx.Transactions().Create(ctx, t, p.ID); err != nil {
			return err
		}
		if err := tx.Products().UpdateQuantity(ctx, p.ID, newQuantity); err != nil {
			return err
		}

		p.Quantity = newQuantity
		t.Products = []model.Product{*p}
		t.User = actor
		created, product = t, p
		return nil
	})
	if err != nil {
		return nil, failure(err, "failed to record transaction")
	}

	s.afterCommit(ctx, events.ActionTransactionCreated, created, product, actor)
	return created, nil
}

func (s *transactionService) List(ctx context.Context) ([]model.TransactionResponse, error) {
	transactions, err := s.store.Transactions().FindAll(ctx)
	if err != nil {
		return nil, failure(err, "failed to list transactions")
	}
	resp := make([]model.TransactionResponse, 0, len(transactions))
	for i := range transactions {
		resp = append(resp, transactions[i].ToResponse())
	}
	return resp, nil
}

func (s *transactionService) Update(ctx context.Context, actor *model.User, id uuid.UUID, in TransactionInput) (*model.Transaction, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	var (
		updated *model.Transaction
		product *model.Product
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Transactions().FindByID(ctx, id)
		if err != nil {
			return notFound(err, "transaction not found")
		}

		previousID := existing.ProductID()
		lockIDs := []uuid.UUID{in.ProductID}
		if s.policy.ReverseOnUpdate {
			lockIDs = append(lockIDs, previousID)
		}
		locked, err := lockProducts(ctx, tx, lockIDs...)
		if err != nil {
			return err
		}

		if s.policy.ReverseOnUpdate && previousID != uuid.Nil {
			previous := locked[previousID]
			restored, err := reverseMovement(previous, existing)
			if err != nil {
				return err
			}
			if err := tx.Products().UpdateQuantity(ctx, previous.ID, restored); err != nil {
				return err
			}
			previous.Quantity = restored
		}

		target := locked[in.ProductID]
		newQuantity, err := applyMovement(target, in.Type, in.Quantity)
		if err != nil {
			return err
		}

		existing.Type = in.Type
		existing.Quantity = in.Quantity
		existing.Note = in.Note
		if err := tx.Transactions().Update(ctx, existing, target.ID); err != nil {
			return err
		}
		if err := tx.Products().UpdateQuantity(ctx, target.ID, newQuantity); err != nil {
			return err
		}

		target.Quantity = newQuantity
		existing.Products = []model.Product{*target}
		updated, product = existing, target
		return nil
	})
	if err != nil {
		return nil, failure(notFound(err, "transaction not found"), "failed to update transaction")
	}

	s.afterCommit(ctx, events.ActionTransactionUpdated, updated, product, actor)
	return updated, nil
}

func (s *transactionService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	var (
		deleted *model.Transaction
		product *model.Product
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Transactions().FindByID(ctx, id)
		if err != nil {
			return notFound(err, "transaction not found")
		}

		productID := existing.ProductID()
		if s.policy.RestoreOnDelete && productID != uuid.Nil {
			locked, err := lockProducts(ctx, tx, productID)
			if err != nil {
				return err
			}
			p := locked[productID]
			restored, err := reverseMovement(p, existing)
			if err != nil {
				return err
			}
			if err := tx.Products().UpdateQuantity(ctx, p.ID, restored); err != nil {
				return err
			}
			p.Quantity = restored
			product = p
		} else if productID != uuid.Nil {
			p := existing.Products[0]
			product = &p
		}

		if err := tx.Transactions().Delete(ctx, id); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return failure(notFound(err, "transaction not found"), "failed to delete transaction")
	}

	if product != nil {
		s.afterCommit(ctx, events.ActionTransactionDeleted, deleted, product, actor)
	} else {
		metrics.RecordStockMovement(string(events.ActionTransactionDeleted), string(deleted.Type), deleted.Quantity)
	}
	return nil
}

// afterCommit publishes the committed movement. Delivery failures are logged
// and never undo the committed change.
func (s *transactionService) afterCommit(ctx context.Context, action events.Action, t *model.Transaction, p *model.Product, actor *model.User) {
	metrics.RecordStockMovement(string(action), string(t.Type), t.Quantity)
	cache.Invalidate(ctx, s.cache, cache.KeyProducts)

	actorEmail := ""
	if actor != nil {
		actorEmail = actor.Email
	}
	event := events.NewStockEvent(action, t, p, actorEmail)
	if err := s.notifier.Notify(ctx, event); err != nil {
		logger.Warn(ctx).Err(err).
			Str("event_id", event.EventID).
			Str("action", string(action)).
			Msg("stock event delivery failed")
	}
}
