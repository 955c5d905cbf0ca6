package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/theobourgeois/vexilo/internal/services"
	"github.com/theobourgeois/vexilo/internal/session"
)

type FlagHandler struct {
	service *services.FlagService
}

func NewFlagHandler(service *services.FlagService) *FlagHandler {
	return &FlagHandler{service: service}
}

func (h *FlagHandler) List(c *fiber.Ctx) error {
	page, limit := pagination(c)
	query := c.Query("q")

	flags, total, err := h.service.ListFlags(page, limit, query)
	if err != nil {
		return fail(c, err)
	}
	return paginated(c, "flags", flags, page, limit, total)
}

func (h *FlagHandler) GetByID(c *fiber.Ctx) error {
	flagID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid flag id")
	}

	flag, err := h.service.GetFlag(flagID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(flag)
}

func (h *FlagHandler) GetRelated(c *fiber.Ctx) error {
	flagID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid flag id")
	}

	related, err := h.service.GetRelatedFlags(flagID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"data": related})
}

func (h *FlagHandler) ListByTag(c *fiber.Ctx) error {
	tag := c.Params("tag")
	page, limit := pagination(c)

	flags, total, err := h.service.ListFlagsByTag(tag, page, limit)
	if err != nil {
		return fail(c, err)
	}
	return paginated(c, "flags", flags, page, limit, total)
}

func (h *FlagHandler) Home(c *fiber.Ctx) error {
	flags, err := h.service.GetHomeFlags()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"data": flags})
}

func (h *FlagHandler) Tags(c *fiber.Ctx) error {
	tags, err := h.service.GetTags()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"data": tags})
}

func (h *FlagHandler) FlagOfTheDay(c *fiber.Ctx) error {
	flag, err := h.service.GetFlagOfTheDay(time.Now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(flag)
}

func (h *FlagHandler) Random(c *fiber.Ctx) error {
	flag, err := h.service.GetRandomFlag()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(flag)
}

func (h *FlagHandler) ToggleFavorite(c *fiber.Ctx) error {
	userID, err := session.UserID(c)
	if err != nil {
		return respond(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	flagID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid flag id")
	}

	favorited, err := h.service.ToggleFavorite(userID, flagID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"favorited": favorited})
}

func (h *FlagHandler) MyFavorites(c *fiber.Ctx) error {
	userID, err := session.UserID(c)
	if err != nil {
		return respond(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	page, limit := pagination(c)

	flags, total, err := h.service.ListFavorites(userID, page, limit)
	if err != nil {
		return fail(c, err)
	}
	return paginated(c, "flags", flags, page, limit, total)
}

// Delete is an admin operation outside the request workflow.
func (h *FlagHandler) Delete(c *fiber.Ctx) error {
	flagID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid flag id")
	}

	if err := h.service.DeleteFlag(c.Context(), flagID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
