package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/distrifresh/almacen-api/internal/application/dto"
	"github.com/distrifresh/almacen-api/internal/domain"
)

// respondError mapea errores de dominio a respuestas HTTP con código máquina y
// mensaje humano. Los errores de stock llevan además las cifras para corregir la
// petición (stock actual vs solicitado).
func respondError(c *fiber.Ctx, err error) error {
	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: insufficient.Error(),
			Details: map[string]any{
				"productId":          insufficient.ProductID,
				"producto":           insufficient.ProductName,
				"stockActual":        insufficient.Current,
				"cantidadSolicitada": insufficient.Requested,
			},
		})
	}

	var window *domain.TimeWindowError
	if errors.As(err, &window) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "TIME_WINDOW",
			Message: window.Error(),
			Details: map[string]any{
				"horas":       window.Age.Hours(),
				"horasLimite": window.Limit.Hours(),
			},
		})
	}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: validation.Error(),
			Details: map[string]any{"campo": validation.Field},
		})
	}

	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrInactiveProduct):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INACTIVE_PRODUCT", Message: err.Error()})
	case errors.Is(err, domain.ErrMovementLinked):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MOVEMENT_LINKED", Message: "no se puede eliminar un movimiento vinculado a una orden"})
	case errors.Is(err, domain.ErrNegativeStock):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "NEGATIVE_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrMovementNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	}

	// Errores de transacción o infraestructura: error de servidor, la operación
	// completa ya hizo rollback y puede reintentarse.
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
