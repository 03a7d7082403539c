package handlers

import (
	"strings"
	"time"

	"flipmail/config"
	"flipmail/handlers/api"
	"flipmail/handlers/web"
	"flipmail/inbox"
	"flipmail/middleware"
	"flipmail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/websocket/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the long-lived objects the routes need
type Deps struct {
	Config    *config.Config
	Views     fiber.Views
	Sessions  *session.Store
	Readers   *inbox.Registry
	AssetsDir string
}

// NewApp builds the fiber application with middleware and routes
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "flipmail",
		Views:        deps.Views,
		ViewsLayout:  "layouts/main",
		ErrorHandler: ErrorHandler,
		// params and queries outlive the request as map keys and cache keys
		Immutable:    true,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
	}))
	app.Use(compress.New(compress.Config{
		// event streams are flushed per message
		Next: func(c *fiber.Ctx) bool { return c.Path() == "/api/events" },
	}))
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: deps.Config.ContentSecurityPolicy(),
	}))
	app.Use(middleware.LocaleMiddleware())
	app.Use(middleware.RateLimiter(deps.Config.RateLimit.Requests, deps.Config.RateLimit.Window))

	if deps.AssetsDir != "" {
		app.Static("/assets", deps.AssetsDir, fiber.Static{
			Compress:      true,
			CacheDuration: 24 * time.Hour,
		})
	}

	notifications := api.NewNotificationHandler(deps.Readers.Status())

	app.Get("/health", func(c *fiber.Ctx) error {
		read, favorites := deps.Readers.Status().Counts()
		return c.JSON(fiber.Map{
			"status":      "ok",
			"time":        time.Now().Format(time.RFC3339),
			"read":        read,
			"favorites":   favorites,
			"subscribers": notifications.Subscribers(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(utils.Registry, promhttp.HandlerOpts{})))

	webEmailHandler := web.NewEmailHandler(deps.Sessions, deps.Readers)
	apiEmailHandler := api.NewEmailHandler(deps.Sessions, deps.Readers)
	i18nHandler := &api.I18nHandler{}

	protected := app.Group("", middleware.CSRFProtection())

	// Web routes
	protected.Get("/", webEmailHandler.HandleInbox)
	protected.Get("/email/:id", webEmailHandler.HandleEmailView)
	protected.Post("/favorite", webEmailHandler.HandleToggleFavorite)

	// HTMX routes (partial template renders)
	htmx := protected.Group("/htmx")
	htmx.Get("/emails", webEmailHandler.HandleEmailList)
	htmx.Get("/viewer", webEmailHandler.HandleViewer)

	// API routes
	apiRoutes := protected.Group("/api")
	apiRoutes.Get("/emails", apiEmailHandler.ListEmails)
	apiRoutes.Get("/email/:id", apiEmailHandler.GetEmail)
	apiRoutes.Post("/favorite", apiEmailHandler.ToggleFavorite)
	apiRoutes.Get("/status", apiEmailHandler.GetStatus)
	apiRoutes.Get("/i18n/:lang", i18nHandler.GetTranslations)
	apiRoutes.Get("/events", notifications.HandleSSE)

	// WebSocket route
	app.Use("/ws", api.UpgradeWebSocket)
	app.Get("/ws/status", websocket.New(notifications.HandleWebSocket))

	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundError("error_404", nil)
	})

	return app
}

// isAPIRequest reports whether the caller expects JSON or a bare fragment
func isAPIRequest(c *fiber.Ctx) bool {
	if c.Get("HX-Request") != "" {
		return true
	}
	return strings.HasPrefix(c.Path(), "/api")
}

// ErrorHandler renders every handler error as JSON or the error page
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, messageID := utils.StatusOf(err)
	localizer, _ := c.Locals("localizer").(*i18n.Localizer)
	message := utils.T(localizer, messageID)

	log := middleware.RequestLogger(c).WithFields(map[string]interface{}{
		"method": c.Method(),
		"path":   c.Path(),
		"status": code,
	})
	if code >= fiber.StatusInternalServerError {
		log.Error("Request failed: %v", err)
	} else {
		log.Debug("Request rejected: %v", err)
	}

	if isAPIRequest(c) {
		return c.Status(code).JSON(fiber.Map{
			"error": message,
			"code":  messageID,
		})
	}

	renderErr := c.Status(code).Render("error", fiber.Map{
		"Error":     message,
		"Code":      code,
		"Localizer": localizer,
		"Lang":      c.Locals("lang"),
		"CSRFToken": c.Locals("csrf"),
	})
	if renderErr != nil {
		utils.Log.Error("Failed to render error page: %v", renderErr)
		return c.Status(code).SendString(message)
	}
	return nil
}
