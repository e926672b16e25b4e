package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/greenhatah/hotspot_pay/internal/auth"
	"github.com/greenhatah/hotspot_pay/internal/catalog"
	"github.com/greenhatah/hotspot_pay/internal/config"
	"github.com/greenhatah/hotspot_pay/internal/gateway"
	"github.com/greenhatah/hotspot_pay/internal/notification"
	"github.com/greenhatah/hotspot_pay/internal/payment"
	"github.com/greenhatah/hotspot_pay/internal/recommend"
	"github.com/greenhatah/hotspot_pay/internal/routes"
	"github.com/greenhatah/hotspot_pay/internal/session"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	sessions *session.Registry
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// New builds the services from cfg and the optional backends, then delegates
// route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		UnescapePath: true,
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: errorHandler,
	})

	catalogSvc := catalog.NewService(catalogSource(cfg, db, logger), cfg.CatalogRefresh, logger)

	var preferences recommend.PreferenceStore
	if cache != nil {
		preferences = recommend.NewRedisPreferenceStore(cache)
	} else {
		preferences = recommend.NewMemoryPreferenceStore()
	}

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	var operators *auth.Service
	if cfg.OperatorEnabled() {
		operators, err = auth.NewService(auth.Options{
			Username:     cfg.OperatorUsername,
			PasswordHash: cfg.OperatorPasswordHash,
			Secret:       cfg.JWTSecret,
			TokenTTL:     cfg.AccessTokenTTL,
		})
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("operator login disabled, catalog refresh is closed")
	}

	sessions := session.NewRegistry(orchestratorFactory(cfg, paymentGateway(cfg, logger), notifier, logger), cfg.SessionIdleTTL, logger)

	if err := routes.Setup(app, routes.Deps{
		Cfg:         cfg,
		DB:          db,
		Cache:       cache,
		Logger:      logger,
		Catalog:     catalogSvc,
		Preferences: preferences,
		Sessions:    sessions,
		Auth:        operators,
	}); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{app: app, cfg: cfg, sessions: sessions, logger: logger, ctx: ctx, cancel: cancel}, nil
}

func catalogSource(cfg config.Config, db *pgxpool.Pool, logger *slog.Logger) catalog.Source {
	switch {
	case cfg.CatalogURL != "":
		logger.Info("catalog source", slog.String("kind", "http"), slog.String("url", cfg.CatalogURL))
		return catalog.NewHTTPSource(cfg.CatalogURL, cfg.GatewayTimeout)
	case db != nil:
		logger.Info("catalog source", slog.String("kind", "postgres"))
		return catalog.NewPostgresSource(db)
	default:
		logger.Warn("catalog source", slog.String("kind", "sample"))
		return catalog.SampleSource()
	}
}

func paymentGateway(cfg config.Config, logger *slog.Logger) gateway.Client {
	if cfg.GatewayBaseURL == "" {
		logger.Warn("payment gateway", slog.String("kind", "sandbox"))
		return gateway.NewSandbox(2)
	}
	logger.Info("payment gateway", slog.String("kind", "http"), slog.String("url", cfg.GatewayBaseURL), slog.String("method", cfg.GatewayMethod))
	return gateway.NewHTTPClient(cfg.GatewayBaseURL, cfg.GatewayMethod, cfg.GatewayTimeout)
}

func buildNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, error) {
	var ops notification.Notifier
	if cfg.TelegramBotToken != "" {
		tg, err := notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		ops = tg
	}
	return notification.NewMulti(logger, notification.NewLoggerNotifier(logger), ops), nil
}

func orchestratorFactory(cfg config.Config, gw gateway.Client, notifier notification.Notifier, logger *slog.Logger) session.Factory {
	retry := payment.RetryPolicy{
		Delay:       cfg.ConfirmRetryDelay,
		MaxAttempts: cfg.ConfirmMaxAttempts,
		MaxDuration: cfg.ConfirmMaxDuration,
	}
	return func(id string, target payment.Target) (*payment.Orchestrator, error) {
		return payment.NewOrchestrator(payment.Options{
			ID:             id,
			Target:         target,
			Gateway:        gw,
			Retry:          retry,
			Notifier:       notifier,
			Logger:         logger,
			SupportContact: cfg.SupportContact,
			RetryTimeout:   cfg.GatewayTimeout,
		})
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// Listen starts the idle session sweeper and the HTTP server.
func (s *Server) Listen() error {
	go s.sessions.Run(s.ctx, time.Minute)

	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server and closes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.app.ShutdownWithContext(ctx)
	s.sessions.CloseAll()
	return err
}

// App exposes the Fiber application for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}
