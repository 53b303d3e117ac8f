package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain/entity"
)

// CreateMovementRequest body para POST /api/movements.
// En AJUSTE, cantidad es el nuevo stock absoluto (puede ser 0); en ENTRADA/SALIDA debe ser > 0.
type CreateMovementRequest struct {
	ProductID  string           `json:"productId" validate:"required"`
	Tipo       string           `json:"tipo" validate:"required,oneof=ENTRADA SALIDA AJUSTE"`
	Cantidad   decimal.Decimal  `json:"cantidad"`
	Precio     *decimal.Decimal `json:"precio,omitempty"`
	Motivo     string           `json:"motivo,omitempty" validate:"omitempty,max=500"`
	NumeroGuia string           `json:"numeroGuia,omitempty" validate:"omitempty,max=100"`
}

// UpdateMovementRequest body para PUT /api/movements/:id. Solo campos que no afectan stock.
type UpdateMovementRequest struct {
	Motivo     *string `json:"motivo,omitempty" validate:"omitempty,max=500"`
	NumeroGuia *string `json:"numeroGuia,omitempty" validate:"omitempty,max=100"`
}

// MovementFilterRequest query params para GET /api/movements.
type MovementFilterRequest struct {
	PageRequest
	ProductID string `query:"productId"`
	Tipo      string `query:"tipo" validate:"omitempty,oneof=ENTRADA SALIDA AJUSTE"`
	DateFrom  string `query:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo    string `query:"dateTo" validate:"omitempty,datetime=2006-01-02"`
	Motivo    string `query:"motivo"`
}

// MovementResponse representación JSON de un movimiento.
type MovementResponse struct {
	ID               string           `json:"id"`
	ProductID        string           `json:"productId"`
	Tipo             string           `json:"tipo"`
	Cantidad         decimal.Decimal  `json:"cantidad"`
	CantidadAnterior decimal.Decimal  `json:"cantidadAnterior"`
	CantidadNueva    decimal.Decimal  `json:"cantidadNueva"`
	Precio           *decimal.Decimal `json:"precio,omitempty"`
	Motivo           string           `json:"motivo,omitempty"`
	NumeroGuia       string           `json:"numeroGuia,omitempty"`
	OrdenCompraID    *string          `json:"ordenCompraId,omitempty"`
	OrdenVentaID     *string          `json:"ordenVentaId,omitempty"`
	CreadoPor        string           `json:"creadoPor"`
	CreadoEn         time.Time        `json:"creadoEn"`
}

// NewMovementResponse mapea la entidad al DTO.
func NewMovementResponse(m *entity.Movement) MovementResponse {
	return MovementResponse{
		ID:               m.ID,
		ProductID:        m.ProductID,
		Tipo:             m.Type,
		Cantidad:         m.Cantidad,
		CantidadAnterior: m.CantidadAnterior,
		CantidadNueva:    m.CantidadNueva,
		Precio:           m.PrecioUnitario,
		Motivo:           m.Motivo,
		NumeroGuia:       m.NumeroGuia,
		OrdenCompraID:    m.PurchaseOrderID,
		OrdenVentaID:     m.SaleOrderID,
		CreadoPor:        m.CreatedBy,
		CreadoEn:         m.CreatedAt,
	}
}

// NewMovementResponses mapea una lista de entidades.
func NewMovementResponses(movs []*entity.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, NewMovementResponse(m))
	}
	return out
}

// CreateMovementResponse respuesta de POST /api/movements: el movimiento creado,
// el stock antes/después y la alerta de stock bajo.
type CreateMovementResponse struct {
	Movimiento      MovementResponse `json:"movimiento"`
	StockAnterior   decimal.Decimal  `json:"stockAnterior"`
	StockNuevo      decimal.Decimal  `json:"stockNuevo"`
	AlertaStockBajo bool             `json:"alertaStockBajo"`
}

// TypeAggregateDTO agregado por tipo para el listado de movimientos.
type TypeAggregateDTO struct {
	Tipo     string          `json:"tipo"`
	Conteo   int64           `json:"conteo"`
	Cantidad decimal.Decimal `json:"cantidad"`
}

// MovementListResponse listado paginado + agregados por tipo.
type MovementListResponse struct {
	Movimientos []MovementResponse `json:"movimientos"`
	Totales     []TypeAggregateDTO `json:"totalesPorTipo"`
	PageResponse
}

// MovementDetailResponse detalle con ventana de contexto (hasta 3 anteriores y 3 posteriores).
type MovementDetailResponse struct {
	Movimiento  MovementResponse   `json:"movimiento"`
	Anteriores  []MovementResponse `json:"anteriores"`
	Posteriores []MovementResponse `json:"posteriores"`
}

// ProductDriftDTO producto cuyo stock materializado no coincide con el libro.
type ProductDriftDTO struct {
	ProductID  string          `json:"productId"`
	Nombre     string          `json:"nombre"`
	StockTabla decimal.Decimal `json:"stockTabla"`
	StockLibro decimal.Decimal `json:"stockLibro"`
}

// IntegrityReportResponse reporte de diagnóstico del auditor (solo lectura).
type IntegrityReportResponse struct {
	MovimientosHuerfanos     []MovementResponse `json:"movimientosHuerfanos"`
	MovimientosSignoInvalido []MovementResponse `json:"movimientosSignoInvalido"`
	MovimientosIncoherentes  []MovementResponse `json:"movimientosIncoherentes"`
	ProductosDesviados       []ProductDriftDTO  `json:"productosDesviados"`
}

// RepairResponse resultado de la reparación: productos cuyo stock fue recalculado.
type RepairResponse struct {
	ProductosReparados []ProductDriftDTO `json:"productosReparados"`
}
