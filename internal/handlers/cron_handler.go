package handlers

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/theobourgeois/vexilo/internal/config"
	"github.com/theobourgeois/vexilo/internal/services"
)

// CronHandler receives triggers from the external scheduler. Every
// endpoint is guarded by the shared cron secret.
type CronHandler struct {
	cfg   *config.Config
	flags *services.FlagService
}

func NewCronHandler(cfg *config.Config, flags *services.FlagService) *CronHandler {
	return &CronHandler{cfg: cfg, flags: flags}
}

// FlagOfTheDay appends today's flag-of-the-day record. Calling it
// twice in one day returns the already-recorded pick.
func (h *CronHandler) FlagOfTheDay(c *fiber.Ctx) error {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request")
	}

	if h.cfg.CronSecret == "" ||
		subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.cfg.CronSecret)) != 1 {
		return respond(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	flag, err := h.flags.PickFlagOfTheDay(time.Now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(flag)
}
