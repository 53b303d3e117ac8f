package dto

import (
	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain/entity"
)

// ProductResponse vista de solo lectura del catálogo para la UI.
type ProductResponse struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Nombre      string          `json:"nombre"`
	Activo      bool            `json:"activo"`
	Stock       decimal.Decimal `json:"stock"`
	StockMinimo decimal.Decimal `json:"stockMinimo"`
	StockBajo   bool            `json:"stockBajo"`
}

// NewProductResponse mapea la entidad al DTO.
func NewProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Nombre:      p.Name,
		Activo:      p.Active,
		Stock:       p.Stock,
		StockMinimo: p.StockMinimo,
		StockBajo:   p.LowStock(),
	}
}

// ProductListResponse listado paginado de productos.
type ProductListResponse struct {
	Productos []ProductResponse `json:"productos"`
	PageResponse
}
