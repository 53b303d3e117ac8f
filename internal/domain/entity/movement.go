package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement representa un registro del libro de movimientos de stock.
// CantidadAnterior y CantidadNueva son capturas del stock del producto inmediatamente
// antes y después de aplicar este movimiento; permiten auditar el libro sin reconstruirlo.
// PurchaseOrderID y SaleOrderID son mutuamente excluyentes: un movimiento generado por una
// orden lleva el ID de esa orden para trazabilidad y para revertirlo si la orden cambia.
type Movement struct {
	ID               string // UUID; (ProductID, CreatedAt) queda como índice cronológico secundario
	ProductID        string
	Type             string // ENTRADA, SALIDA, AJUSTE (ver inventory.MovementType)
	Cantidad         decimal.Decimal // siempre > 0; en AJUSTE es el valor absoluto nuevo
	CantidadAnterior decimal.Decimal
	CantidadNueva    decimal.Decimal
	PrecioUnitario   *decimal.Decimal
	Motivo           string
	NumeroGuia       string
	PurchaseOrderID  *string
	SaleOrderID      *string
	CreatedBy        string // UserID del autor
	CreatedAt        time.Time
}

// LinkedToOrder indica si el movimiento fue generado por una orden de compra o venta.
func (m *Movement) LinkedToOrder() bool {
	return m.PurchaseOrderID != nil || m.SaleOrderID != nil
}

// Age devuelve la antigüedad del movimiento respecto a now.
func (m *Movement) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}
