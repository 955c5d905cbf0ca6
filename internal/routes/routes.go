package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/theobourgeois/vexilo/internal/config"
	"github.com/theobourgeois/vexilo/internal/handlers"
	"github.com/theobourgeois/vexilo/internal/middleware"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	flagHandler *handlers.FlagHandler,
	requestHandler *handlers.RequestHandler,
	reportHandler *handlers.ReportHandler,
	userHandler *handlers.UserHandler,
	healthHandler *handlers.HealthHandler,
	cronHandler *handlers.CronHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter 10 req/min limit
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/github", authHandler.GitHubSignIn)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)

	// Public read paths
	api.Get("/flags", flagHandler.List)
	api.Get("/flags/home", flagHandler.Home)
	api.Get("/flags/random", flagHandler.Random)
	api.Get("/flags/of-the-day", flagHandler.FlagOfTheDay)
	api.Get("/flags/tag/:tag", flagHandler.ListByTag)
	api.Get("/flags/:id", flagHandler.GetByID)
	api.Get("/flags/:id/related", flagHandler.GetRelated)
	api.Get("/tags", flagHandler.Tags)
	api.Get("/leaderboard", userHandler.Leaderboard)
	api.Get("/users/:number", userHandler.GetProfile)

	// Cron trigger, guarded by shared secret in the body
	api.Post("/cron/flag-of-the-day", cronHandler.FlagOfTheDay)

	// Authenticated user paths
	protected := api.Group("", middleware.JWTProtected(cfg))
	protected.Post("/requests", requestHandler.Submit)
	protected.Get("/requests/mine", requestHandler.MyRequests)
	protected.Delete("/requests/:id", requestHandler.Withdraw)
	protected.Post("/flags/:id/favorite", flagHandler.ToggleFavorite)
	protected.Get("/favorites", flagHandler.MyFavorites)
	protected.Post("/reports", reportHandler.Create)
	protected.Patch("/me", userHandler.UpdateMe)

	// Moderation paths
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/requests", requestHandler.ListPending)
	admin.Post("/requests/:id/approve", requestHandler.Approve)
	admin.Post("/requests/:id/decline", requestHandler.Decline)
	admin.Get("/reports", reportHandler.List)
	admin.Post("/reports/:id/resolve", reportHandler.Resolve)
	admin.Delete("/flags/:id", flagHandler.Delete)
}
