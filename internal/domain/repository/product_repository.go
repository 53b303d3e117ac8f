package repository

import (
	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain/entity"
)

// ProductRepository puerto de persistencia de productos.
// GetForUpdate bloquea la fila del producto (SELECT FOR UPDATE) y debe usarse
// dentro de una transacción: la fila del producto es el punto de serialización
// de todos los movimientos concurrentes sobre ese producto.
type ProductRepository interface {
	GetByID(id string) (*entity.Product, error)
	GetForUpdate(id string) (*entity.Product, error)
	UpdateStock(productID string, stock decimal.Decimal) error
	List(activeOnly bool, limit, offset int) ([]*entity.Product, int64, error)
	ListLowStock(limit, offset int) ([]*entity.Product, int64, error)
}
