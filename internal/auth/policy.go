package auth

import (
	"context"

	"stockflow/internal/apperr"
	"stockflow/internal/model"
)

// Operation names, one per exposed procedure.
const (
	OpCategoryCreate = "category.create"
	OpCategoryList   = "category.list"
	OpCategoryUpdate = "category.update"
	OpCategoryDelete = "category.delete"

	OpSupplierCreate = "supplier.create"
	OpSupplierList   = "supplier.list"
	OpSupplierUpdate = "supplier.update"
	OpSupplierDelete = "supplier.delete"

	OpProductCreate  = "product.create"
	OpProductList    = "product.list"
	OpProductGetByID = "product.getById"
	OpProductUpdate  = "product.update"
	OpProductDelete  = "product.delete"

	OpTransactionCreate = "transaction.create"
	OpTransactionList   = "transaction.list"
	OpTransactionUpdate = "transaction.update"
	OpTransactionDelete = "transaction.delete"

	OpUserList       = "user.list"
	OpUserUpdateRole = "user.updateRole"
	OpUserDelete     = "user.delete"

	OpDashboardStats         = "dashboard.stats"
	OpDashboardStockMovement = "dashboard.stockMovement"
	OpDashboardLowStock      = "dashboard.lowStock"
)

// Policy maps operation names to the roles allowed to call them.
type Policy map[string]model.RoleSet

// DefaultPolicy returns the access table. staffListsTransactions restricts
// transaction.list to staff and admins.
func DefaultPolicy(staffListsTransactions bool) Policy {
	transactionList := AnyRole
	if staffListsTransactions {
		transactionList = StaffOrAdmin
	}
	return Policy{
		OpCategoryCreate: StaffOrAdmin,
		OpCategoryList:   AnyRole,
		OpCategoryUpdate: StaffOrAdmin,
		OpCategoryDelete: StaffOrAdmin,

		OpSupplierCreate: StaffOrAdmin,
		OpSupplierList:   AnyRole,
		OpSupplierUpdate: StaffOrAdmin,
		OpSupplierDelete: StaffOrAdmin,

		OpProductCreate:  StaffOrAdmin,
		OpProductList:    AnyRole,
		OpProductGetByID: StaffOrAdmin,
		OpProductUpdate:  StaffOrAdmin,
		OpProductDelete:  StaffOrAdmin,

		OpTransactionCreate: StaffOrAdmin,
		OpTransactionList:   transactionList,
		OpTransactionUpdate: StaffOrAdmin,
		OpTransactionDelete: StaffOrAdmin,

		OpUserList:       StaffOrAdmin,
		OpUserUpdateRole: AdminOnly,
		OpUserDelete:     AdminOnly,

		OpDashboardStats:         AnyRole,
		OpDashboardStockMovement: AnyRole,
		OpDashboardLowStock:      AnyRole,
	}
}

// Allowed returns the role set for op. Unknown operations get an empty set.
func (p Policy) Allowed(op string) model.RoleSet {
	return p[op]
}

// Guard returns the full chain for op. Unknown operations are always denied.
func (p Policy) Guard(op string, users UserFinder) Guard {
	allowed, ok := p[op]
	if !ok {
		return func(ctx context.Context) (context.Context, error) {
			return ctx, apperr.Newf(apperr.Forbidden, "operation %q is not permitted", op)
		}
	}
	return Tier(users, allowed)
}
