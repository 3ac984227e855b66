package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wecan-app/wecan-api/internal/config"
	"github.com/wecan-app/wecan-api/internal/handler"
	"github.com/wecan-app/wecan-api/internal/middleware"
	"github.com/wecan-app/wecan-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	ChatHandler      *handler.ChatHandler
	UserHandler      *handler.UserHandler
	ReportHandler    *handler.ReportHandler
	AssistantHandler *handler.AssistantHandler
	AdminHandler     *handler.AdminHandler
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit("auth", 10, time.Minute))
		deps.AuthHandler.Register(auth)

		session := api.Group("/auth", jwtMiddleware)
		deps.AuthHandler.RegisterProtected(session)
	}

	if deps.ChatHandler != nil {
		chat := api.Group("/chat", jwtMiddleware)
		deps.ChatHandler.Register(chat)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware)
		deps.UserHandler.Register(users)
	}

	if deps.ReportHandler != nil {
		reports := api.Group("/reports", jwtMiddleware)
		reports.Use(middleware.RateLimit("reports", 5, time.Minute))
		deps.ReportHandler.Register(reports)
	}

	if deps.AssistantHandler != nil {
		assistant := api.Group("/assistant", jwtMiddleware)
		assistant.Use(middleware.RateLimit("assistant", 20, time.Minute))
		deps.AssistantHandler.Register(assistant)
	}

	if deps.AdminHandler != nil {
		admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole("admin"))
		deps.AdminHandler.Register(admin)
	}
}
