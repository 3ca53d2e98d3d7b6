package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"questboard/internal/api"
	"questboard/internal/middleware"
	"questboard/internal/notify"
	"questboard/internal/repository"
	"questboard/internal/service"
	"questboard/pkg/auth"
	"questboard/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type storage interface {
	service.Store
	Close() error
}

func openStore(cfg repository.Config) (storage, error) {
	switch cfg.Driver {
	case repository.DriverMemory:
		return repository.NewMemory(), nil
	case repository.DriverPostgres, "":
		return repository.New(cfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	hub := notify.NewHub()
	locks := service.NewQuestLocks()

	userService := service.NewUserService(repo)
	ledgerService := service.NewLedgerService(repo, service.LedgerConfig{
		PlatformAccountID: cfg.Ledger.PlatformAccountID,
	}, hub)
	questService := service.NewQuestService(repo, ledgerService, locks, hub, service.Catalog{
		Categories: cfg.Catalog.Categories,
	})
	applicationService := service.NewApplicationService(repo, questService, locks)
	submissionService := service.NewSubmissionService(repo, questService, locks)

	if err := ledgerService.EnsurePlatformAccount(ctx); err != nil {
		zapLogger.Fatal("Failed to prepare platform account", zap.Error(err))
	}

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
	authz := middleware.NewAuthorization(cfg.Admins)

	redisClient := middleware.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if redisClient != nil {
		defer redisClient.Close()
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit, redisClient)

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))
	router.Use(middleware.Metrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a := router.Group("/api/v1")
	a.Use(limiter.Handler())
	api.NewUserRoutes(a, userService, telegramAuth)
	api.NewLedgerRoutes(a, ledgerService, telegramAuth, authz)
	api.NewQuestRoutes(a, questService, telegramAuth)
	api.NewApplicationRoutes(a, applicationService, telegramAuth)
	api.NewSubmissionRoutes(a, submissionService, telegramAuth)
	api.NewNotificationRoutes(a, hub, telegramAuth)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Payments.Enabled {
		paymentService, err := service.NewPaymentService(service.PaymentConfig{
			BotToken:    cfg.TelegramAuth.TelegramBotToken,
			Debug:       cfg.TelegramAuth.DebugMode,
			GoldPerStar: cfg.Payments.GoldPerStar,
		}, ledgerService)
		if err != nil {
			zapLogger.Fatal("Failed to initialize payment service", zap.Error(err))
		}
		api.NewStoreRoutes(a, telegramAuth, paymentService)

		g.Go(func() error {
			return paymentService.StartPaymentListener(gctx)
		})
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	g.Go(func() error {
		zapLogger.Info("Starting server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("Server stopped with error", zap.Error(err))
	}
}
