package handlers

import (
	"errors"
	"strings"

	appconfig "netwin-backend/config"
	"netwin-backend/middleware"
	"netwin-backend/models"
	"netwin-backend/services"
	"netwin-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Users         *services.UserService
	Tournaments   *services.TournamentService
	Wallet        *services.WalletService
	KYC           *services.KYCService
	Notifications *services.NotificationService
	Support       *services.SupportService
	Stats         *services.StatsService
	OTP           *services.OTPService
	Sweeper       *services.StatusSweeper
}

// NewApp builds the fiber app with every route mounted.
func NewApp(cfg appconfig.ServerConfig, issuer *middleware.TokenIssuer, svc Services) *fiber.App {
	bodyLimit := cfg.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 25
	}
	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			return respondError(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     joinOrigins(cfg.Origins()),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	SetupInternalRoutes(app, cfg.ServiceToken, svc.Sweeper)

	api := app.Group("/api")
	SetupAuthRoutes(api, svc.OTP)

	// Registered before the header-authenticated groups: EventSource cannot
	// send an Authorization header.
	api.Get("/notifications/stream", middleware.SSEAuthMiddleware(issuer), NewNotificationHandler(svc.Notifications).Stream)

	requireUser := middleware.UserContextMiddleware(issuer)
	SetupUserRoutes(api.Group("/users", requireUser), svc)
	SetupTournamentRoutes(api.Group("/tournaments", requireUser), svc.Tournaments)
	SetupWalletRoutes(api.Group("/wallet", requireUser), svc.Wallet)
	SetupKYCRoutes(api.Group("/kyc", requireUser), svc.KYC)
	SetupNotificationRoutes(api.Group("/notifications", requireUser), svc.Notifications)
	SetupSupportRoutes(api.Group("/support", requireUser), svc.Support)
	SetupAdminRoutes(api.Group("/admin", requireUser, middleware.RequireRole(models.RoleAdmin)), svc)

	utils.Log.Infow("✅ routes mounted", "origins", cfg.Origins())
	return app
}

func joinOrigins(origins []string) string {
	if len(origins) == 0 {
		return "http://localhost:3000"
	}
	return strings.Join(origins, ",")
}
