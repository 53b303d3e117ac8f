package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/distrifresh/almacen-api/internal/application/dto"
	"github.com/distrifresh/almacen-api/internal/domain"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// ProductHandler consultas de solo lectura del catálogo. El stock de un producto
// solo cambia a través de movimientos, nunca por un PUT directo.
type ProductHandler struct {
	products repository.ProductRepository
}

// NewProductHandler construye el handler.
func NewProductHandler(products repository.ProductRepository) *ProductHandler {
	return &ProductHandler{products: products}
}

// List lista productos con paginación. ?activo=false incluye los desactivados.
// GET /api/products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if !parseQueryAndValidate(c, &page) {
		return nil
	}
	page.DefaultPage()

	activeOnly := true
	if v := c.Query("activo"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return respondError(c, &domain.ValidationError{Field: "activo", Message: "debe ser true o false"})
		}
		activeOnly = parsed
	}

	list, total, err := h.products.List(activeOnly, page.Limit, page.Offset())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(productList(list, total, page))
}

// Get devuelve un producto por ID.
// GET /api/products/:id
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	p, err := h.products.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if p == nil {
		return respondError(c, domain.ErrProductNotFound)
	}
	return c.JSON(dto.NewProductResponse(p))
}

// LowStock lista productos activos en o por debajo de su stock mínimo,
// ordenados del déficit mayor al menor.
// GET /api/products/low-stock
func (h *ProductHandler) LowStock(c *fiber.Ctx) error {
	var page dto.PageRequest
	if !parseQueryAndValidate(c, &page) {
		return nil
	}
	page.DefaultPage()

	list, total, err := h.products.ListLowStock(page.Limit, page.Offset())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(productList(list, total, page))
}

func productList(list []*entity.Product, total int64, page dto.PageRequest) dto.ProductListResponse {
	out := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, dto.NewProductResponse(p))
	}
	return dto.ProductListResponse{
		Productos: out,
		PageResponse: dto.PageResponse{
			Page:  page.Page,
			Limit: page.Limit,
			Total: total,
		},
	}
}
