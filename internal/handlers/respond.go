package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/theobourgeois/vexilo/internal/dto"
	"github.com/theobourgeois/vexilo/internal/services"
)

// fail maps the service error taxonomy onto HTTP statuses. Expected
// business-rule violations become 4xx envelopes; anything else is an
// infrastructure fault and surfaces as a logged 500.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return respond(c, fiber.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrNotFound):
		return respond(c, fiber.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return respond(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrEmailTaken), services.IsValidation(err):
		return respond(c, fiber.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err.Error())
		return respond(c, fiber.StatusInternalServerError, "Internal server error")
	}
}

func respond(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return respond(c, fiber.StatusBadRequest, message)
}

// pagination clamps page/limit query params to sane bounds.
func pagination(c *fiber.Ctx) (page, limit int) {
	page = c.QueryInt("page", 1)
	limit = c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	return page, limit
}

func paginated(c *fiber.Ctx, key string, items interface{}, page, limit int, total int64) error {
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			key: items,
			"pagination": fiber.Map{
				"page":        page,
				"limit":       limit,
				"total":       total,
				"total_pages": (total + int64(limit) - 1) / int64(limit),
			},
		},
	})
}
