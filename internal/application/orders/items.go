package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/application/dto"
	"github.com/distrifresh/almacen-api/internal/domain"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	domaininv "github.com/distrifresh/almacen-api/internal/domain/inventory"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// buildItems valida las líneas de la petición y las convierte en líneas de orden
// con subtotales redondeados. Verifica que cada producto exista y esté activo, y
// que no haya productos repetidos (un producto por línea, el motor de deltas lo asume).
func buildItems(productRepo repository.ProductRepository, orderID string, reqItems []dto.OrderItemRequest) ([]entity.OrderItem, decimal.Decimal, error) {
	seen := make(map[string]bool, len(reqItems))
	items := make([]entity.OrderItem, 0, len(reqItems))
	total := decimal.Zero
	for _, it := range reqItems {
		if it.ProductID == "" {
			return nil, decimal.Zero, &domain.ValidationError{Field: "items.productId", Message: "es requerido"}
		}
		if seen[it.ProductID] {
			return nil, decimal.Zero, &domain.ValidationError{Field: "items.productId", Message: "producto repetido en la orden"}
		}
		seen[it.ProductID] = true
		if !it.Cantidad.GreaterThan(decimal.Zero) {
			return nil, decimal.Zero, &domain.ValidationError{Field: "items.cantidad", Message: "debe ser mayor que cero"}
		}
		if it.PrecioUnitario.IsNegative() {
			return nil, decimal.Zero, &domain.ValidationError{Field: "items.precioUnitario", Message: "no puede ser negativo"}
		}
		product, err := productRepo.GetByID(it.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if product == nil {
			return nil, decimal.Zero, domain.ErrProductNotFound
		}
		if !product.Active {
			return nil, decimal.Zero, domain.ErrInactiveProduct
		}
		subtotal := domaininv.RoundMoney(it.Cantidad.Mul(it.PrecioUnitario))
		items = append(items, entity.OrderItem{
			ID:             uuid.New().String(),
			OrderID:        orderID,
			ProductID:      it.ProductID,
			Cantidad:       domaininv.RoundStock(it.Cantidad),
			PrecioUnitario: domaininv.RoundMoney(it.PrecioUnitario),
			Subtotal:       subtotal,
		})
		total = total.Add(subtotal)
	}
	return items, domaininv.RoundMoney(total), nil
}

// itemDeltas calcula el delta de cantidad por producto entre las líneas viejas y
// las nuevas de una orden (nuevo − viejo). Un delta cero se omite.
func itemDeltas(old, new []entity.OrderItem) map[string]decimal.Decimal {
	deltas := make(map[string]decimal.Decimal)
	for _, it := range old {
		deltas[it.ProductID] = deltas[it.ProductID].Sub(it.Cantidad)
	}
	for _, it := range new {
		deltas[it.ProductID] = deltas[it.ProductID].Add(it.Cantidad)
	}
	for id, d := range deltas {
		if d.IsZero() {
			delete(deltas, id)
		}
	}
	return deltas
}

// netEffect suma el efecto con signo de los movimientos de una orden por producto.
// Se usa para revertir la orden completa: el stock se restaura restando este neto.
func netEffect(movs []*entity.Movement) map[string]decimal.Decimal {
	net := make(map[string]decimal.Decimal)
	for _, m := range movs {
		t := domaininv.MovementType(m.Type)
		net[m.ProductID] = net[m.ProductID].Add(t.SignedEffect(m.Cantidad))
	}
	return net
}

// newOrderNumber genera un correlativo legible con prefijo OC/OV.
func newOrderNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), uuid.New().String()[:8])
}
