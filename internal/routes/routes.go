package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/greenhatah/hotspot_pay/internal/auth"
	"github.com/greenhatah/hotspot_pay/internal/catalog"
	"github.com/greenhatah/hotspot_pay/internal/config"
	"github.com/greenhatah/hotspot_pay/internal/middleware"
	"github.com/greenhatah/hotspot_pay/internal/payment"
	"github.com/greenhatah/hotspot_pay/internal/recommend"
	"github.com/greenhatah/hotspot_pay/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg         config.Config
	DB          *pgxpool.Pool
	Cache       *redis.Client
	Logger      *slog.Logger
	Catalog     *catalog.Service
	Preferences recommend.PreferenceStore
	Sessions    *session.Registry
	// Auth is nil when no operator account is configured; operator routes
	// then reject every request.
	Auth *auth.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Catalog == nil || d.Preferences == nil || d.Sessions == nil {
		return fmt.Errorf("catalog, preferences and sessions are required")
	}
	// Enforce Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.ClientID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	api.Get("/tiers", listTiers)

	if d.Auth != nil {
		authHandler := auth.NewHandler(d.Auth, d.Logger)
		api.Post("/token", middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit, d.Logger), authHandler.Login)
	}
	operator := middleware.OperatorAuth(d.Auth)

	catalogHandler := catalog.NewHandler(d.Catalog)
	api.Get("/locations", catalogHandler.Locations)
	api.Post("/catalog/refresh", operator, catalogHandler.Refresh)

	recommendHandler := recommend.NewHandler(d.Catalog, d.Preferences, d.Sessions, d.Logger)
	api.Get("/locations/:location/access-points", recommendHandler.AccessPoints)
	api.Post("/locations/:location/access-points/:name/select", recommendHandler.Select)

	sessionHandler := session.NewHandler(d.Sessions, d.Logger)
	sessions := api.Group("/sessions/:id")
	sessions.Get("", sessionHandler.Get)
	sessions.Delete("", sessionHandler.Discard)
	sessions.Post("/pay",
		middleware.PayRateLimit(d.Cache, d.Cfg.PayRateLimit, d.Logger),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		sessionHandler.Pay,
	)
	sessions.Post("/confirm", sessionHandler.Confirm)

	return nil
}

type tierResponse struct {
	Amount        int64  `json:"amount"`
	ValidityHours int    `json:"validity_hours"`
	Label         string `json:"label"`
}

func listTiers(c *fiber.Ctx) error {
	tiers := payment.Tiers()
	out := make([]tierResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, tierResponse{Amount: t.Amount, ValidityHours: t.Hours(), Label: t.Label()})
	}
	return c.JSON(fiber.Map{"tiers": out})
}
