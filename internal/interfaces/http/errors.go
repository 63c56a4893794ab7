package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/dto"
	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/fe"
)

// writeError traduce errores del servicio FE a respuestas HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var dispatchErr *einvoice.DispatchError
	switch {
	case fe.IsValidationError(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "pedido no encontrado"})
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONCURRENT_UPDATE", Message: "el pedido está siendo procesado, intente de nuevo"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()})
	case errors.As(err, &dispatchErr):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "NO_BACKEND", Message: err.Error()})
	case errors.Is(err, einvoice.ErrTransient):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "AUTHORITY_UNAVAILABLE", Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
