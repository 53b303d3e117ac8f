package orders

import (
	"context"
	"time"

	"github.com/distrifresh/almacen-api/internal/application/inventory"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// TxRunner transacciones que combinan el libro de movimientos con las tablas de
// órdenes: la orden y todos sus movimientos se confirman o revierten juntos.
type TxRunner interface {
	RunPurchase(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		orderRepo repository.PurchaseOrderRepository,
	) error) error

	RunSale(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		orderRepo repository.SaleOrderRepository,
	) error) error
}

// MovementWriter contrato mínimo que el subsistema de órdenes necesita del motor de
// movimientos: aplicar un movimiento con los repositorios de la transacción en curso.
// Lo implementa *inventory.MovementUseCase; la interfaz evita el import circular.
type MovementWriter interface {
	CreateInTx(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		input inventory.CreateMovementInput,
		now time.Time,
	) (*inventory.CreateMovementResult, error)
}
