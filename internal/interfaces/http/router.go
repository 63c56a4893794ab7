package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/dto"
	"github.com/jhoicas/pos-einvoice-cr/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	EInvoice    EInvoiceService
	Batches     BatchRunner
	JWTSecret   string
	ServiceName string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(dto.HealthResponse{Status: "ok", Service: deps.ServiceName})
	})

	// Todas las rutas /api requieren Bearer Token
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Acciones de operador sobre el comprobante del pedido
	orders := api.Group("/orders/:id/fe", RequireRole(jwt.RoleAdmin, jwt.RoleOperator))
	feHandler := NewEInvoiceHandler(deps.EInvoice)
	orders.Get("/", feHandler.Get)
	orders.Post("/classify", feHandler.Classify)
	orders.Post("/process", feHandler.Process)
	orders.Post("/send", feHandler.Send)
	orders.Post("/check-status", feHandler.CheckStatus)

	// Lotes cron (cron externo o admin)
	cron := api.Group("/cron", RequireRole(jwt.RoleAdmin, jwt.RoleCron))
	cronHandler := NewCronHandler(deps.Batches)
	cron.Post("/send-pending", cronHandler.SendPending)
	cron.Post("/check-pending", cronHandler.CheckPending)
}
