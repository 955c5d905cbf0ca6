package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/theobourgeois/vexilo/internal/dto"
	"github.com/theobourgeois/vexilo/internal/services"
	"github.com/theobourgeois/vexilo/internal/session"
)

type RequestHandler struct {
	service *services.RequestService
}

func NewRequestHandler(service *services.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

func (h *RequestHandler) Submit(c *fiber.Ctx) error {
	userID, err := session.UserID(c)
	if err != nil {
		return respond(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.SubmitFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request")
	}

	request, err := h.service.Submit(c.Context(), userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *RequestHandler) MyRequests(c *fiber.Ctx) error {
	userID, err := session.UserID(c)
	if err != nil {
		return respond(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	page, limit := pagination(c)

	requests, total, err := h.service.ListByUser(userID, page, limit)
	if err != nil {
		return fail(c, err)
	}
	return paginated(c, "requests", requests, page, limit, total)
}

func (h *RequestHandler) Withdraw(c *fiber.Ctx) error {
	userID, err := session.UserID(c)
	if err != nil {
		return respond(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid request id")
	}

	if err := h.service.Withdraw(c.Context(), userID, requestID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// --- Admin handlers ---

func (h *RequestHandler) ListPending(c *fiber.Ctx) error {
	page, limit := pagination(c)

	requests, total, err := h.service.ListPending(page, limit)
	if err != nil {
		return fail(c, err)
	}
	return paginated(c, "requests", requests, page, limit, total)
}

func (h *RequestHandler) Approve(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid request id")
	}

	request, err := h.service.Approve(c.Context(), requestID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(request)
}

func (h *RequestHandler) Decline(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid request id")
	}

	request, err := h.service.Decline(c.Context(), requestID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(request)
}
