package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name     string          `gorm:"type:varchar(255);not null" json:"name"`
	SKU      string          `gorm:"type:varchar(50);uniqueIndex:idx_products_sku;not null" json:"sku"`
	Price    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Quantity int             `gorm:"not null;default:0;check:chk_products_quantity,quantity >= 0" json:"quantity"`

	CategoryID *uuid.UUID `gorm:"type:uuid;index" json:"categoryId"`
	Category   *Category  `gorm:"constraint:OnDelete:SET NULL;" json:"category,omitempty"`
	SupplierID *uuid.UUID `gorm:"type:uuid;index" json:"supplierId"`
	Supplier   *Supplier  `gorm:"constraint:OnDelete:SET NULL;" json:"supplier,omitempty"`
}

// ProductResponse flattens the category and supplier names for listings
type ProductResponse struct {
	Product
	CategoryName *string `json:"categoryName"`
	SupplierName *string `json:"supplierName"`
}

func (p *Product) ToResponse() ProductResponse {
	resp := ProductResponse{Product: *p}
	if p.Category != nil {
		name := p.Category.Name
		resp.CategoryName = &name
	}
	if p.Supplier != nil {
		name := p.Supplier.Name
		resp.SupplierName = &name
	}
	resp.Category = nil
	resp.Supplier = nil
	return resp
}
