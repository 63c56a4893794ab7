package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/dto"
	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

// EInvoiceService operaciones FE por pedido (lo implementa *einvoice.Service).
type EInvoiceService interface {
	Document(ctx context.Context, orderID string) (*einvoice.DocumentView, error)
	Classify(ctx context.Context, orderID string) (entity.DocumentType, error)
	ProcessAfterFinalization(ctx context.Context, orderID string, force bool) error
	SendNow(ctx context.Context, orderID string, force bool) (bool, error)
	CheckStatus(ctx context.Context, orderID string) (entity.Status, error)
}

// EInvoiceHandler acciones manuales de operador sobre el comprobante de un pedido.
type EInvoiceHandler struct {
	svc EInvoiceService
}

// NewEInvoiceHandler construye el handler.
func NewEInvoiceHandler(svc EInvoiceService) *EInvoiceHandler {
	return &EInvoiceHandler{svc: svc}
}

// Get godoc
// @Summary      Registro FE del pedido
// @Tags         fe
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del pedido POS"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/fe [get]
func (h *EInvoiceHandler) Get(c *fiber.Ctx) error {
	view, err := h.svc.Document(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewDocumentResponse(view))
}

// Classify godoc
// @Summary      Tipo de comprobante que corresponde al pedido
// @Tags         fe
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del pedido POS"
// @Success      200  {object}  dto.ClassifyResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/fe/classify [post]
func (h *EInvoiceHandler) Classify(c *fiber.Ctx) error {
	id := c.Params("id")
	docType, err := h.svc.Classify(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ClassifyResponse{OrderID: id, DocumentType: string(docType)})
}

// Process godoc
// @Summary      Encolar el comprobante del pedido finalizado
// @Tags         fe
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string            true   "ID del pedido POS"
// @Param        body  body  dto.ForceRequest  false  "force"
// @Success      200   {object}  dto.DocumentResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/fe/process [post]
func (h *EInvoiceHandler) Process(c *fiber.Ctx) error {
	id := c.Params("id")
	in, ok := parseForce(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.svc.ProcessAfterFinalization(c.UserContext(), id, in.Force); err != nil {
		return writeError(c, err)
	}
	return h.Get(c)
}

// Send godoc
// @Summary      Enviar el comprobante ahora
// @Description  force vuelve a firmar y enviar aunque el documento esté en estado final.
// @Tags         fe
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string            true   "ID del pedido POS"
// @Param        body  body  dto.ForceRequest  false  "force"
// @Success      200   {object}  dto.SendResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/fe/send [post]
func (h *EInvoiceHandler) Send(c *fiber.Ctx) error {
	id := c.Params("id")
	in, ok := parseForce(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	sent, err := h.svc.SendNow(c.UserContext(), id, in.Force)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SendResponse{OrderID: id, Sent: sent})
}

// CheckStatus godoc
// @Summary      Consultar el estado en Hacienda
// @Tags         fe
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del pedido POS"
// @Success      200  {object}  dto.StatusResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/fe/check-status [post]
func (h *EInvoiceHandler) CheckStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	st, err := h.svc.CheckStatus(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StatusResponse{OrderID: id, Status: string(st)})
}

// parseForce cuerpo opcional {"force": bool}.
func parseForce(c *fiber.Ctx) (dto.ForceRequest, bool) {
	var in dto.ForceRequest
	if len(c.Body()) == 0 {
		return in, true
	}
	if err := c.BodyParser(&in); err != nil {
		return in, false
	}
	return in, true
}
