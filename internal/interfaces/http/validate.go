package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/distrifresh/almacen-api/internal/application/dto"
)

// validate instancia compartida de go-playground/validator para los DTOs.
var validate = validator.New(validator.WithRequiredStructEnabled())

// parseAndValidate parsea el body JSON y aplica las reglas `validate` del DTO.
// Si la petición es inválida escribe la respuesta 400 y devuelve false: el
// handler debe cortar con `return nil`.
func parseAndValidate(c *fiber.Ctx, out any) bool {
	if err := c.BodyParser(out); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		return false
	}
	return validateStruct(c, out)
}

// parseQueryAndValidate parsea los query params y aplica las reglas del DTO.
func parseQueryAndValidate(c *fiber.Ctx, out any) bool {
	if err := c.QueryParser(out); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
		return false
	}
	return validateStruct(c, out)
}

func validateStruct(c *fiber.Ctx, out any) bool {
	if err := validate.Struct(out); err != nil {
		var details map[string]any
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			details = map[string]any{"campo": errs[0].Field(), "regla": errs[0].Tag()}
		}
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: "datos inválidos",
			Details: details,
		})
		return false
	}
	return true
}
