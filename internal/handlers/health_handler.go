package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theobourgeois/vexilo/internal/database"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		status = "degraded"
		dbStatus = err.Error()
	}

	return c.JSON(fiber.Map{
		"status":   status,
		"database": dbStatus,
	})
}
