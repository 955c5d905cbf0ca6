package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/theobourgeois/vexilo/internal/dto"
	"github.com/theobourgeois/vexilo/internal/services"
	"github.com/theobourgeois/vexilo/internal/session"
)

type ReportHandler struct {
	service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	userID, err := session.UserID(c)
	if err != nil {
		return respond(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.ReportFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request")
	}

	report, err := h.service.CreateReport(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	page, limit := pagination(c)
	status := c.Query("status")

	reports, total, err := h.service.ListReports(status, page, limit)
	if err != nil {
		return fail(c, err)
	}
	return paginated(c, "reports", reports, page, limit, total)
}

func (h *ReportHandler) Resolve(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid report id")
	}

	var req dto.ResolveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request")
	}

	if err := h.service.ResolveReport(reportID, &req); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
