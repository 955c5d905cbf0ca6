package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/theobourgeois/vexilo/internal/dto"
	"github.com/theobourgeois/vexilo/internal/services"
	"github.com/theobourgeois/vexilo/internal/session"
)

type UserHandler struct {
	service     *services.UserService
	leaderboard *services.LeaderboardService
}

func NewUserHandler(service *services.UserService, leaderboard *services.LeaderboardService) *UserHandler {
	return &UserHandler{service: service, leaderboard: leaderboard}
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	userNumber, err := strconv.ParseInt(c.Params("number"), 10, 64)
	if err != nil {
		return badRequest(c, "Invalid user number")
	}

	profile, err := h.service.GetProfile(userNumber)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(profile)
}

func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	userID, err := session.UserID(c)
	if err != nil {
		return respond(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request")
	}

	user, err := h.service.UpdateProfile(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) Leaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	rows, err := h.leaderboard.GetLeaderboard(limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"data": rows})
}
