package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain"
	domaininv "github.com/distrifresh/almacen-api/internal/domain/inventory"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// StockValidator verificaciones previas a un movimiento: existencia y estado del
// producto, y suficiencia de stock para salidas. Solo lectura, sin efectos.
type StockValidator struct {
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
}

// NewStockValidator construye el validador.
func NewStockValidator(productRepo repository.ProductRepository, movementRepo repository.MovementRepository) *StockValidator {
	return &StockValidator{productRepo: productRepo, movementRepo: movementRepo}
}

// ValidateForMovement valida que un movimiento pueda aplicarse sobre el producto.
// Para SALIDA no confía en la columna materializada: re-deriva el stock actual
// reproduciendo el historial completo de movimientos del producto.
// AJUSTE y ENTRADA no verifican suficiencia (un AJUSTE puede fijar el stock en cero).
func (v *StockValidator) ValidateForMovement(ctx context.Context, productID string, tipo domaininv.MovementType, cantidad decimal.Decimal) error {
	if productID == "" {
		return &domain.ValidationError{Field: "productId", Message: "es requerido"}
	}
	if !tipo.Valid() {
		return &domain.ValidationError{Field: "tipo", Message: "debe ser ENTRADA, SALIDA o AJUSTE"}
	}
	if tipo == domaininv.TypeAjuste {
		if cantidad.IsNegative() {
			return &domain.ValidationError{Field: "cantidad", Message: "no puede ser negativa"}
		}
	} else if !cantidad.GreaterThan(decimal.Zero) {
		return &domain.ValidationError{Field: "cantidad", Message: "debe ser mayor que cero"}
	}

	product, err := v.productRepo.GetByID(productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrProductNotFound
	}
	if !product.Active {
		return domain.ErrInactiveProduct
	}

	if tipo != domaininv.TypeSalida {
		return nil
	}

	movs, err := v.movementRepo.ListByProductAsc(productID)
	if err != nil {
		return err
	}
	current := domaininv.Replay(movs)
	if current.LessThan(cantidad) {
		return &domain.InsufficientStockError{
			ProductID:   productID,
			ProductName: product.Name,
			Current:     current,
			Requested:   cantidad,
		}
	}
	return nil
}
