package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo de la distribuidora (frutas y verduras).
// Stock es una proyección materializada del libro de movimientos: solo el motor de
// movimientos puede modificarlo, siempre dentro de la misma transacción que el movimiento.
type Product struct {
	ID          string
	SKU         string // código único
	Name        string
	Active      bool
	Stock       decimal.Decimal // >= 0 siempre
	StockMinimo decimal.Decimal // umbral de alerta de stock bajo
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LowStock indica si el stock actual está en o por debajo del mínimo configurado.
func (p *Product) LowStock() bool {
	return p.Stock.LessThanOrEqual(p.StockMinimo)
}
