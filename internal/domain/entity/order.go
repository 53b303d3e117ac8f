package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una orden.
const (
	OrderStatusActive    = "ACTIVA"
	OrderStatusCancelled = "ANULADA"
)

// OrderItem línea de una orden de compra o venta.
type OrderItem struct {
	ID             string
	OrderID        string
	ProductID      string
	Cantidad       decimal.Decimal // > 0
	PrecioUnitario decimal.Decimal
	Subtotal       decimal.Decimal // Cantidad * PrecioUnitario, redondeado a 2 decimales
}

// PurchaseOrder orden de compra a un proveedor. Cada línea genera un movimiento
// ENTRADA en la misma transacción que la orden.
type PurchaseOrder struct {
	ID        string
	Numero    string // correlativo legible (ej. OC-2026-0001)
	Proveedor string
	Estado    string
	Total     decimal.Decimal
	Items     []OrderItem
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaleOrder orden de venta a un cliente. Cada línea genera un movimiento SALIDA
// en la misma transacción que la orden.
type SaleOrder struct {
	ID        string
	Numero    string
	Cliente   string
	Estado    string
	Total     decimal.Decimal
	Items     []OrderItem
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
