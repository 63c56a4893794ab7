package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

// RequestLogger registra método, ruta, status y duración de cada request.
func RequestLogger(log *logger.Logger) fiber.Handler {
	log = log.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Method()).Str("path", c.Path()).Int("status", status).
			Dur("duration", time.Since(start)).Str("user_id", GetUserID(c)).Msg("request")
		return err
	}
}
