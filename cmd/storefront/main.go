package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/config"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/events"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/http/handlers"
	applog "github.com/ranmrojas/nakermotosstore-sub001/internal/log"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/remote"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/repos"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/services"
)

func main() {
	// Until LOG_LEVEL is known, startup failures go through a production logger.
	boot := zap.Must(zap.NewProduction())

	cfg, err := loadConfig(boot)
	if err != nil {
		boot.Fatal("config", zap.Error(err))
	}
	logger, err := applog.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		boot.Fatal("logger", zap.Error(err))
	}
	_ = boot.Sync()
	defer logger.Sync()
	logger.Info("config loaded", zap.Any("config", cfg.Redacted()))

	if cfg.RemoteAPIURL == "" {
		logger.Fatal("REMOTE_API_URL is required")
	}
	client, err := remote.NewClient(cfg.RemoteAPIURL,
		remote.WithToken(cfg.RemoteAPIToken),
		remote.WithTimeout(cfg.RemoteTimeout),
	)
	if err != nil {
		logger.Fatal("remote client", zap.Error(err))
	}

	// A store that cannot open is not fatal: catalog reads fall back to live calls.
	store := repos.NewLocalStore(cfg.DBDSN)
	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Init(initCtx); err != nil {
		logger.Warn("local cache disabled", zap.Error(err))
	}
	cancelInit()

	publisher := newPublisher(cfg, logger)

	important, _ := cfg.ImportantCategoryIDs() // validated by config.Load
	opts := []services.Option{
		services.WithLogger(logger.Named("sync")),
		services.WithPublisher(publisher, cfg.EventsExchange, cfg.ServiceName),
	}
	categories := services.NewCategorySync(store, client, cfg.CategoryTTL, opts...)
	products := services.NewProductSync(store, client, services.ProductSyncConfig{
		FullTTL:          cfg.ProductTTL,
		QuickTTL:         cfg.ProductQuickTTL,
		BatchSize:        cfg.BatchSize,
		BatchDelay:       cfg.BatchDelay,
		AutoSyncInterval: cfg.AutoSyncInterval,
		Limit:            cfg.ProductLimit,
	}, opts...)
	preloader := services.NewPreloader(store, categories, products, important, opts...)
	status := services.NewStatusReporter(preloader, products, store, services.StatusConfig{
		CategoryTTL:          cfg.CategoryTTL,
		ProductTTL:           cfg.ProductTTL,
		ProductQuickTTL:      cfg.ProductQuickTTL,
		BatchSize:            cfg.BatchSize,
		AutoSyncInterval:     cfg.AutoSyncInterval,
		ImportantCategoryIDs: important,
	})
	catalog := services.NewCatalogService(store, categories, products, client)
	catalog.Limit = cfg.ProductLimit

	deps := handlers.NewDeps(handlers.Services{
		Catalog:    catalog,
		Inventory:  services.NewInventoryService(client),
		Categories: categories,
		Products:   products,
		Preloader:  preloader,
		Status:     status,
		Store:      store,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.ServiceName,
		ErrorHandler: handlers.ErrorHandler,
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz" || c.Path() == "/api/v1/cache/status"
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		applog.Info(c, "http.access", map[string]any{"took_ms": time.Since(start).Milliseconds()})
		return err
	})

	// ---------- Routes ----------
	handlers.Register(app, deps, handlers.RouteConfig{AdminToken: cfg.AdminToken})

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "cache": store.Ready()})
	})
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	})

	if cfg.AutoSyncEnabled && len(important) > 0 {
		products.StartAutoSync(important)
	}

	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	gracefulShutdown(app, products, preloader, publisher, store, logger)
}

// loadConfig reads an optional .env file and then the environment.
func loadConfig(boot *zap.Logger) (config.Config, error) {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		boot.Warn("could not read .env", zap.Error(err))
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Error("invalid configuration", zap.Error(err))
		return config.Config{}, err
	}
	return cfg, nil
}

func newPublisher(cfg config.Config, logger *zap.Logger) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.NewLogPublisher(logger.Named("events"))
	}
	p, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.ServiceName, logger.Named("events"))
	if err != nil {
		logger.Warn("rabbitmq unavailable, logging events instead", zap.Error(err))
		return events.NewLogPublisher(logger.Named("events"))
	}
	return p
}

func gracefulShutdown(app *fiber.App, products *services.ProductSync, preloader *services.Preloader, publisher events.Publisher, store *repos.LocalStore, logger *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := products.StopAutoSyncAndWait(ctx); err != nil {
		logger.Warn("auto sync still running at shutdown", zap.Error(err))
	}
	preloader.Wait()

	if err := publisher.Close(); err != nil {
		logger.Error("close publisher", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		logger.Error("close store", zap.Error(err))
	}
	logger.Info("stopped")
}
