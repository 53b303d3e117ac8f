package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain/entity"
)

// OrderItemRequest línea de una orden de compra o venta.
type OrderItemRequest struct {
	ProductID      string          `json:"productId" validate:"required"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precioUnitario"`
}

// CreatePurchaseOrderRequest body para POST /api/orders/purchase.
type CreatePurchaseOrderRequest struct {
	Proveedor string             `json:"proveedor" validate:"required,max=200"`
	Items     []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateSaleOrderRequest body para POST /api/orders/sale.
type CreateSaleOrderRequest struct {
	Cliente string             `json:"cliente" validate:"required,max=200"`
	Items   []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderRequest body para PUT /api/orders/{purchase,sale}/:id.
// Reemplaza el conjunto completo de líneas; el motor calcula los deltas por producto.
type UpdateOrderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderItemResponse línea de orden en respuestas.
type OrderItemResponse struct {
	ProductID      string          `json:"productId"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precioUnitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// PurchaseOrderResponse representación JSON de una orden de compra.
type PurchaseOrderResponse struct {
	ID        string              `json:"id"`
	Numero    string              `json:"numero"`
	Proveedor string              `json:"proveedor"`
	Estado    string              `json:"estado"`
	Total     decimal.Decimal     `json:"total"`
	Items     []OrderItemResponse `json:"items"`
	CreadoPor string              `json:"creadoPor"`
	CreadoEn  time.Time           `json:"creadoEn"`
}

// SaleOrderResponse representación JSON de una orden de venta.
type SaleOrderResponse struct {
	ID        string              `json:"id"`
	Numero    string              `json:"numero"`
	Cliente   string              `json:"cliente"`
	Estado    string              `json:"estado"`
	Total     decimal.Decimal     `json:"total"`
	Items     []OrderItemResponse `json:"items"`
	CreadoPor string              `json:"creadoPor"`
	CreadoEn  time.Time           `json:"creadoEn"`
}

func newOrderItems(items []entity.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, OrderItemResponse{
			ProductID:      it.ProductID,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Subtotal:       it.Subtotal,
		})
	}
	return out
}

// NewPurchaseOrderResponse mapea la entidad al DTO.
func NewPurchaseOrderResponse(o *entity.PurchaseOrder) PurchaseOrderResponse {
	return PurchaseOrderResponse{
		ID:        o.ID,
		Numero:    o.Numero,
		Proveedor: o.Proveedor,
		Estado:    o.Estado,
		Total:     o.Total,
		Items:     newOrderItems(o.Items),
		CreadoPor: o.CreatedBy,
		CreadoEn:  o.CreatedAt,
	}
}

// NewSaleOrderResponse mapea la entidad al DTO.
func NewSaleOrderResponse(o *entity.SaleOrder) SaleOrderResponse {
	return SaleOrderResponse{
		ID:       o.ID,
		Numero:   o.Numero,
		Cliente:  o.Cliente,
		Estado:   o.Estado,
		Total:    o.Total,
		Items:    newOrderItems(o.Items),
		CreadoPor: o.CreatedBy,
		CreadoEn: o.CreatedAt,
	}
}
