package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/distrifresh/almacen-api/internal/application/dto"
	"github.com/distrifresh/almacen-api/internal/application/orders"
)

// OrderHandler maneja las órdenes de compra y venta (protegido). Toda mutación de
// una orden genera o revierte movimientos en la misma transacción.
type OrderHandler struct {
	purchases *orders.PurchaseOrderUseCase
	sales     *orders.SaleOrderUseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(purchases *orders.PurchaseOrderUseCase, sales *orders.SaleOrderUseCase) *OrderHandler {
	return &OrderHandler{purchases: purchases, sales: sales}
}

// CreatePurchase crea una orden de compra; cada línea genera un movimiento ENTRADA.
// POST /api/orders/purchase
func (h *OrderHandler) CreatePurchase(c *fiber.Ctx) error {
	var in dto.CreatePurchaseOrderRequest
	if !parseAndValidate(c, &in) {
		return nil
	}
	order, err := h.purchases.Create(c.Context(), GetUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewPurchaseOrderResponse(order))
}

// GetPurchase devuelve una orden de compra con sus líneas.
// GET /api/orders/purchase/:id
func (h *OrderHandler) GetPurchase(c *fiber.Ctx) error {
	order, err := h.purchases.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewPurchaseOrderResponse(order))
}

// ListPurchases lista órdenes de compra con paginación.
// GET /api/orders/purchase
func (h *OrderHandler) ListPurchases(c *fiber.Ctx) error {
	var page dto.PageRequest
	if !parseQueryAndValidate(c, &page) {
		return nil
	}
	page.DefaultPage()
	list, total, err := h.purchases.List(c.Context(), page.Limit, page.Offset())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.PurchaseOrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, dto.NewPurchaseOrderResponse(o))
	}
	return c.JSON(fiber.Map{
		"ordenes": out,
		"page":    page.Page,
		"limit":   page.Limit,
		"total":   total,
	})
}

// UpdatePurchase reemplaza las líneas de la orden aplicando movimientos delta.
// PUT /api/orders/purchase/:id
func (h *OrderHandler) UpdatePurchase(c *fiber.Ctx) error {
	var in dto.UpdateOrderRequest
	if !parseAndValidate(c, &in) {
		return nil
	}
	order, err := h.purchases.Update(c.Context(), GetActor(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewPurchaseOrderResponse(order))
}

// DeletePurchase revierte los movimientos de la orden y la elimina.
// DELETE /api/orders/purchase/:id
func (h *OrderHandler) DeletePurchase(c *fiber.Ctx) error {
	if err := h.purchases.Delete(c.Context(), GetActor(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "orden de compra eliminada"})
}

// CreateSale crea una orden de venta; cada línea genera un movimiento SALIDA.
// POST /api/orders/sale
func (h *OrderHandler) CreateSale(c *fiber.Ctx) error {
	var in dto.CreateSaleOrderRequest
	if !parseAndValidate(c, &in) {
		return nil
	}
	order, err := h.sales.Create(c.Context(), GetUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewSaleOrderResponse(order))
}

// GetSale devuelve una orden de venta con sus líneas.
// GET /api/orders/sale/:id
func (h *OrderHandler) GetSale(c *fiber.Ctx) error {
	order, err := h.sales.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSaleOrderResponse(order))
}

// ListSales lista órdenes de venta con paginación.
// GET /api/orders/sale
func (h *OrderHandler) ListSales(c *fiber.Ctx) error {
	var page dto.PageRequest
	if !parseQueryAndValidate(c, &page) {
		return nil
	}
	page.DefaultPage()
	list, total, err := h.sales.List(c.Context(), page.Limit, page.Offset())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.SaleOrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, dto.NewSaleOrderResponse(o))
	}
	return c.JSON(fiber.Map{
		"ordenes": out,
		"page":    page.Page,
		"limit":   page.Limit,
		"total":   total,
	})
}

// UpdateSale reemplaza las líneas de la orden aplicando movimientos delta invertidos.
// PUT /api/orders/sale/:id
func (h *OrderHandler) UpdateSale(c *fiber.Ctx) error {
	var in dto.UpdateOrderRequest
	if !parseAndValidate(c, &in) {
		return nil
	}
	order, err := h.sales.Update(c.Context(), GetActor(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSaleOrderResponse(order))
}

// DeleteSale revierte los movimientos de la orden (devuelve el stock) y la elimina.
// DELETE /api/orders/sale/:id
func (h *OrderHandler) DeleteSale(c *fiber.Ctx) error {
	if err := h.sales.Delete(c.Context(), GetActor(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "orden de venta eliminada"})
}
