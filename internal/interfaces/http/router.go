package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/distrifresh/almacen-api/internal/application/inventory"
	"github.com/distrifresh/almacen-api/internal/application/orders"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	MovementUC  *inventory.MovementUseCase
	Auditor     *inventory.IntegrityAuditor
	PurchaseUC  *orders.PurchaseOrderUseCase
	SaleUC      *orders.SaleOrderUseCase
	ProductRepo repository.ProductRepository
	JWTSecret   string
}

// Router registra las rutas de la API. Todo /api requiere Bearer Token; las
// operaciones destructivas (DELETE de movimientos, reparación de integridad)
// exigen además el rol admin.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Movimientos de inventario
	movements := api.Group("/movements")
	movementHandler := NewMovementHandler(deps.MovementUC, deps.Auditor)
	movements.Get("/", movementHandler.List)
	movements.Post("/", movementHandler.Create)
	movements.Get("/integrity", movementHandler.Integrity)
	movements.Post("/integrity/repair", RequireRole(RoleAdmin), movementHandler.Repair)
	movements.Get("/:id", movementHandler.Get)
	movements.Put("/:id", movementHandler.Update)
	movements.Delete("/:id", RequireRole(RoleAdmin), movementHandler.Delete)

	// Órdenes de compra y de venta
	orderHandler := NewOrderHandler(deps.PurchaseUC, deps.SaleUC)
	purchases := api.Group("/orders/purchase")
	purchases.Post("/", orderHandler.CreatePurchase)
	purchases.Get("/", orderHandler.ListPurchases)
	purchases.Get("/:id", orderHandler.GetPurchase)
	purchases.Put("/:id", orderHandler.UpdatePurchase)
	purchases.Delete("/:id", orderHandler.DeletePurchase)

	sales := api.Group("/orders/sale")
	sales.Post("/", orderHandler.CreateSale)
	sales.Get("/", orderHandler.ListSales)
	sales.Get("/:id", orderHandler.GetSale)
	sales.Put("/:id", orderHandler.UpdateSale)
	sales.Delete("/:id", orderHandler.DeleteSale)

	// Catálogo (solo lectura)
	products := api.Group("/products")
	productHandler := NewProductHandler(deps.ProductRepo)
	products.Get("/", productHandler.List)
	products.Get("/low-stock", productHandler.LowStock)
	products.Get("/:id", productHandler.Get)
}
