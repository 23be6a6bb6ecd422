package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"docflow/docs"
	"docflow/internal/config"
	"docflow/internal/database"
	"docflow/internal/database/migration"
	"docflow/internal/events"
	handlers "docflow/internal/http/handler"
	"docflow/internal/http/middleware"
	"docflow/internal/logging"
	"docflow/internal/otel"
	"docflow/internal/pdf"
	"docflow/internal/repository/postgres"
	"docflow/internal/service"
	"docflow/internal/storage"
)

const serviceName = "docflow-api"

// @title docflow Document Store API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	logger := logging.New(serviceName, cfg.LogLevel, cfg.Location())

	if err := run(cfg, logger); err != nil {
		logger.Error("server_exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, serviceName, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown_failed", "error", err)
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		return err
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return err
	}

	publisher := newPublisher(cfg.NATS, logger)
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return err
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	docSvc := service.NewDocumentService(objStore, postgres.NewDocumentPostgres(db),
		service.WithEvents(publisher),
		service.WithMetrics(metrics),
		service.WithLogger(logger),
		service.WithPresign(cfg.MinIO.PresignTTL),
	)
	authSvc, err := service.NewAuthService(postgres.NewUserPostgres(db), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL,
		service.WithAuthLogger(logger),
	)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             int(pdf.MaxSize) + 1<<20,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:           db,
		Documents:    docSvc,
		Auth:         authSvc,
		LoginLimiter: middleware.NewRateLimiter(cfg.Auth.LoginRatePerMin),
		Gatherer:     reg,
	})

	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}
		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}
		return swagger.HandlerDefault(c)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server_listening", "addr", ":"+cfg.Port, "host", cfg.AppHost)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("server_shutting_down")
		return app.ShutdownWithContext(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newPublisher connects to NATS when configured. Connection failures
// fall back to Noop so transitions keep working without events.
func newPublisher(cfg config.NATSConfig, logger *slog.Logger) events.Publisher {
	if cfg.URL == "" {
		return events.Noop{}
	}
	p, err := events.NewNATS(cfg.URL, cfg.Subject, events.Options{
		ConnectTimeout: 5 * time.Second,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  60,
	}, logger)
	if err != nil {
		logger.Warn("nats_unavailable", "url", cfg.URL, "error", err)
		return events.Noop{}
	}
	return p
}
