package http

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/dto"
	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
)

// BatchRunner lotes cron FE (lo implementa *einvoice.Service).
type BatchRunner interface {
	CronSendPending(ctx context.Context, limit int) (einvoice.BatchResult, error)
	CronCheckPending(ctx context.Context, limit int) (einvoice.BatchResult, error)
}

// CronHandler entradas HTTP para un cron externo.
type CronHandler struct {
	runner   BatchRunner
	validate *validator.Validate
}

// NewCronHandler construye el handler.
func NewCronHandler(runner BatchRunner) *CronHandler {
	return &CronHandler{runner: runner, validate: validator.New()}
}

// SendPending godoc
// @Summary      Enviar comprobantes pendientes
// @Tags         cron
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.BatchRequest  false  "limit"
// @Success      200   {object}  dto.BatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/cron/send-pending [post]
func (h *CronHandler) SendPending(c *fiber.Ctx) error {
	return h.run(c, h.runner.CronSendPending)
}

// CheckPending godoc
// @Summary      Consultar estado de comprobantes enviados
// @Tags         cron
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.BatchRequest  false  "limit"
// @Success      200   {object}  dto.BatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/cron/check-pending [post]
func (h *CronHandler) CheckPending(c *fiber.Ctx) error {
	return h.run(c, h.runner.CronCheckPending)
}

func (h *CronHandler) run(c *fiber.Ctx, batch func(context.Context, int) (einvoice.BatchResult, error)) error {
	var in dto.BatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	if err := h.validate.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	res, err := batch(c.UserContext(), in.Limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BatchResponse{BatchResult: res})
}
