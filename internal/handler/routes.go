package handler

import (
	"stockflow/internal/auth"
	"stockflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Routes bundles what RegisterRoutes needs to mount the API.
type Routes struct {
	Policy   auth.Policy
	Users    auth.UserFinder
	Sessions middleware.SessionVerifier

	Categories   *CategoryHandler
	Suppliers    *SupplierHandler
	Products     *ProductHandler
	Transactions *TransactionHandler
	UsersAPI     *UserHandler
	Dashboard    *DashboardHandler
	Webhook      *WebhookHandler
}

// RegisterRoutes mounts /api/v1 behind session extraction and per-operation
// guards, plus the signed identity webhook.
func RegisterRoutes(app fiber.Router, r Routes) {
	guard := func(op string) fiber.Handler {
		return middleware.Guarded(r.Policy.Guard(op, r.Users))
	}

	if r.Webhook != nil {
		app.Post("/api/webhooks/identity", r.Webhook.HandleIdentityEvent)
	}

	api := app.Group("/api/v1", middleware.Session(r.Sessions))

	api.Get("/categories", guard(auth.OpCategoryList), r.Categories.GetCategories)
	api.Post("/categories", guard(auth.OpCategoryCreate), r.Categories.CreateCategory)
	api.Put("/categories/:id", guard(auth.OpCategoryUpdate), r.Categories.UpdateCategory)
	api.Delete("/categories/:id", guard(auth.OpCategoryDelete), r.Categories.DeleteCategory)

	api.Get("/suppliers", guard(auth.OpSupplierList), r.Suppliers.GetSuppliers)
	api.Post("/suppliers", guard(auth.OpSupplierCreate), r.Suppliers.CreateSupplier)
	api.Put("/suppliers/:id", guard(auth.OpSupplierUpdate), r.Suppliers.UpdateSupplier)
	api.Delete("/suppliers/:id", guard(auth.OpSupplierDelete), r.Suppliers.DeleteSupplier)

	api.Get("/products", guard(auth.OpProductList), r.Products.GetProducts)
	api.Post("/products", guard(auth.OpProductCreate), r.Products.CreateProduct)
	api.Get("/products/:id", guard(auth.OpProductGetByID), r.Products.GetProduct)
	api.Put("/products/:id", guard(auth.OpProductUpdate), r.Products.UpdateProduct)
	api.Delete("/products/:id", guard(auth.OpProductDelete), r.Products.DeleteProduct)

	api.Get("/transactions", guard(auth.OpTransactionList), r.Transactions.GetTransactions)
	api.Post("/transactions", guard(auth.OpTransactionCreate), r.Transactions.CreateTransaction)
	api.Put("/transactions/:id", guard(auth.OpTransactionUpdate), r.Transactions.UpdateTransaction)
	api.Delete("/transactions/:id", guard(auth.OpTransactionDelete), r.Transactions.DeleteTransaction)

	// Only a session is required: a freshly signed-up user may not be synced yet.
	api.Get("/users/me", middleware.Guarded(auth.RequireSession), r.UsersAPI.GetMe)
	api.Get("/users", guard(auth.OpUserList), r.UsersAPI.GetUsers)
	api.Put("/users/:id/role", guard(auth.OpUserUpdateRole), r.UsersAPI.UpdateUserRole)
	api.Delete("/users/:id", guard(auth.OpUserDelete), r.UsersAPI.DeleteUser)

	api.Get("/dashboard/stats", guard(auth.OpDashboardStats), r.Dashboard.GetDashboardStats)
	api.Get("/dashboard/stock-movement", guard(auth.OpDashboardStockMovement), r.Dashboard.GetStockMovement)
	api.Get("/dashboard/low-stock", guard(auth.OpDashboardLowStock), r.Dashboard.GetLowStock)
}
