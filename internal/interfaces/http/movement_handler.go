package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/distrifresh/almacen-api/internal/application/dto"
	"github.com/distrifresh/almacen-api/internal/application/inventory"
	domaininv "github.com/distrifresh/almacen-api/internal/domain/inventory"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// MovementHandler maneja las peticiones HTTP del libro de movimientos (protegido).
type MovementHandler struct {
	uc      *inventory.MovementUseCase
	auditor *inventory.IntegrityAuditor
}

// NewMovementHandler construye el handler.
func NewMovementHandler(uc *inventory.MovementUseCase, auditor *inventory.IntegrityAuditor) *MovementHandler {
	return &MovementHandler{uc: uc, auditor: auditor}
}

// dateLayout formato de fechas en query params.
const dateLayout = "2006-01-02"

// List lista movimientos con filtros, paginación y agregados por tipo.
// GET /api/movements?productId&tipo&dateFrom&dateTo&motivo&page&limit
func (h *MovementHandler) List(c *fiber.Ctx) error {
	var in dto.MovementFilterRequest
	if !parseQueryAndValidate(c, &in) {
		return nil
	}
	in.DefaultPage()

	f := repository.MovementFilter{Limit: in.Limit, Offset: in.Offset()}
	if in.ProductID != "" {
		f.ProductID = &in.ProductID
	}
	if in.Tipo != "" {
		f.Type = &in.Tipo
	}
	if in.Motivo != "" {
		f.Motivo = &in.Motivo
	}
	if in.DateFrom != "" {
		from, _ := time.Parse(dateLayout, in.DateFrom)
		f.DateFrom = &from
	}
	if in.DateTo != "" {
		// dateTo es inclusivo: cubre el día completo
		to, _ := time.Parse(dateLayout, in.DateTo)
		to = to.Add(24*time.Hour - time.Nanosecond)
		f.DateTo = &to
	}

	list, err := h.uc.ListMovements(c.Context(), f)
	if err != nil {
		return respondError(c, err)
	}

	totales := make([]dto.TypeAggregateDTO, 0, len(list.Aggregates))
	for _, a := range list.Aggregates {
		totales = append(totales, dto.TypeAggregateDTO{Tipo: a.Type, Conteo: a.Count, Cantidad: a.Cantidad})
	}
	return c.JSON(dto.MovementListResponse{
		Movimientos:  dto.NewMovementResponses(list.Movements),
		Totales:      totales,
		PageResponse: dto.PageResponse{Page: in.Page, Limit: in.Limit, Total: list.Total},
	})
}

// Create registra un movimiento (ENTRADA, SALIDA o AJUSTE) de forma transaccional.
// POST /api/movements
func (h *MovementHandler) Create(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateMovementRequest
	if !parseAndValidate(c, &in) {
		return nil
	}
	tipo, err := domaininv.ParseMovementType(in.Tipo)
	if err != nil {
		return respondError(c, err)
	}

	result, err := h.uc.CreateMovement(c.Context(), inventory.CreateMovementInput{
		ProductID:  in.ProductID,
		Tipo:       tipo,
		Cantidad:   in.Cantidad,
		Precio:     in.Precio,
		Motivo:     in.Motivo,
		NumeroGuia: in.NumeroGuia,
		UserID:     userID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CreateMovementResponse{
		Movimiento:      dto.NewMovementResponse(result.Movement),
		StockAnterior:   result.StockAnterior,
		StockNuevo:      result.StockNuevo,
		AlertaStockBajo: result.AlertaStockBajo,
	})
}

// Get devuelve el detalle de un movimiento con su ventana de contexto
// (hasta 3 movimientos anteriores y 3 posteriores del mismo producto).
// GET /api/movements/:id
func (h *MovementHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	detail, err := h.uc.GetMovement(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MovementDetailResponse{
		Movimiento:  dto.NewMovementResponse(detail.Movement),
		Anteriores:  dto.NewMovementResponses(detail.Anteriores),
		Posteriores: dto.NewMovementResponses(detail.Posteriores),
	})
}

// Update edita los campos sin efecto en stock (motivo, número de guía).
// Autor dentro de 24h, o admin sin restricción.
// PUT /api/movements/:id
func (h *MovementHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	var in dto.UpdateMovementRequest
	if !parseAndValidate(c, &in) {
		return nil
	}
	mov, err := h.uc.UpdateMovement(c.Context(), GetActor(c), id, in.Motivo, in.NumeroGuia)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewMovementResponse(mov))
}

// Delete elimina un movimiento revirtiendo su efecto en el stock.
// Solo admins, máximo 48h, nunca si está vinculado a una orden.
// DELETE /api/movements/:id
func (h *MovementHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.uc.DeleteMovement(c.Context(), GetActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "movimiento eliminado"})
}

// Integrity reporte de consistencia entre el libro y la columna de stock (solo lectura).
// GET /api/movements/integrity
func (h *MovementHandler) Integrity(c *fiber.Ctx) error {
	report, err := h.auditor.CheckIntegrity(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.IntegrityReportResponse{
		MovimientosHuerfanos:     dto.NewMovementResponses(report.Huerfanos),
		MovimientosSignoInvalido: dto.NewMovementResponses(report.SignoInvalido),
		MovimientosIncoherentes:  dto.NewMovementResponses(report.Incoherentes),
		ProductosDesviados:       driftDTOs(report.Desviados),
	})
}

// Repair recalcula el stock de los productos desviados reproduciendo el libro completo.
// POST /api/movements/integrity/repair
func (h *MovementHandler) Repair(c *fiber.Ctx) error {
	repaired, err := h.auditor.Repair(c.Context(), GetActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.RepairResponse{ProductosReparados: driftDTOs(repaired)})
}

func driftDTOs(drifts []inventory.ProductDrift) []dto.ProductDriftDTO {
	out := make([]dto.ProductDriftDTO, 0, len(drifts))
	for _, d := range drifts {
		out = append(out, dto.ProductDriftDTO{
			ProductID:  d.Product.ID,
			Nombre:     d.Product.Name,
			StockTabla: d.StockTabla,
			StockLibro: d.StockLibro,
		})
	}
	return out
}
