package model

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TxIn  TransactionType = "IN"
	TxOut TransactionType = "OUT"
)

func (t TransactionType) Valid() bool {
	return t == TxIn || t == TxOut
}

// Apply returns the stock level after moving qty units in direction t.
func (t TransactionType) Apply(current, qty int) int {
	if t == TxOut {
		return current - qty
	}
	return current + qty
}

// Reverse returns the stock level with a previous movement undone.
func (t TransactionType) Reverse(current, qty int) int {
	if t == TxOut {
		return current + qty
	}
	return current - qty
}

type Transaction struct {
	BaseModel
	Type     TransactionType `gorm:"type:varchar(10);not null" json:"type"`
	Quantity int             `gorm:"not null" json:"quantity"`
	Note     *string         `gorm:"type:text" json:"note"`

	UserID *uuid.UUID `gorm:"type:uuid;index" json:"userId"`
	User   *User      `gorm:"constraint:OnDelete:SET NULL;" json:"user,omitempty"`

	// Always a single product in practice; the join table mirrors the stored schema.
	Products []Product `gorm:"many2many:transaction_products;constraint:OnDelete:CASCADE;" json:"products,omitempty"`
}

// ProductID returns the id of the moved product, or uuid.Nil when unloaded.
func (t *Transaction) ProductID() uuid.UUID {
	if len(t.Products) == 0 {
		return uuid.Nil
	}
	return t.Products[0].ID
}

type ProductSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	SKU  string    `json:"sku"`
}

type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type TransactionResponse struct {
	ID        uuid.UUID        `json:"id"`
	Type      TransactionType  `json:"type"`
	Quantity  int              `json:"quantity"`
	Note      *string          `json:"note"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Products  []ProductSummary `json:"products"`
	User      *UserSummary     `json:"user"`
}

func (t *Transaction) ToResponse() TransactionResponse {
	resp := TransactionResponse{
		ID:        t.ID,
		Type:      t.Type,
		Quantity:  t.Quantity,
		Note:      t.Note,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Products:  make([]ProductSummary, 0, len(t.Products)),
	}
	for _, p := range t.Products {
		resp.Products = append(resp.Products, ProductSummary{ID: p.ID, Name: p.Name, SKU: p.SKU})
	}
	if t.User != nil {
		resp.User = &UserSummary{ID: t.User.ID, Email: t.User.Email}
	}
	return resp
}
