package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"secrets/docs"
	"secrets/internal/auth"
	"secrets/internal/cache"
	"secrets/internal/config"
	"secrets/internal/db"
	"secrets/internal/handler"
	"secrets/internal/logging"
	"secrets/internal/metrics"
	"secrets/internal/repository"
	"secrets/internal/router"
	"secrets/internal/service"
	"secrets/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// serveFlags override values loaded from the environment when set.
type serveFlags struct {
	port      string
	logFormat string
}

// NewRootCmd creates the root command, which runs the HTTP server.
func NewRootCmd() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:          "secrets",
		Short:        "Secrets - username/password authentication service",
		Long:         `Secrets registers users, verifies credentials and issues a 24h session cookie.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if flags.port != "" {
				cfg.ServerPort = flags.port
			}
			if flags.logFormat != "" {
				cfg.LogFormat = flags.logFormat
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&flags.port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "log format: json or text (overrides LOG_FORMAT)")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.Setup("secrets", version, cfg.LogFormat, nil)
	slog.SetDefault(logger)

	logger.Info("starting secrets service",
		"environment", cfg.Environment,
		"port", cfg.ServerPort,
		"store", cfg.StoreDriver,
		"bcrypt_cost", cfg.BcryptCost,
	)

	users, err := newUserRepository(cfg)
	if err != nil {
		return err
	}

	var profileCache *cache.Client
	if cfg.CacheEnabled() {
		profileCache = cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, "secrets:")
		defer profileCache.Close()
		if err := profileCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, profile cache will miss", "addr", cfg.RedisAddr, "error", err)
		}
	} else if cfg.RedisAddr != "" {
		logger.Warn("REDIS_ADDR ignored: profile cache requires STORE_DRIVER=mysql")
	}

	hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}
	tokens, err := auth.NewJWTService(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterMetrics(registry)

	userService := service.NewUserService(users, profileCache)
	authService, err := service.NewAuthService(users, userService, hasher, tokens, validation.New(), logger)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	authHandler := handler.NewAuthHandler(authService, cfg.IsProduction(), logger)
	userHandler := handler.NewUserHandler(authService, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(e, router.Deps{
		Config:      cfg,
		Logger:      logger,
		Verifier:    tokens,
		Gatherer:    registry,
		AuthHandler: authHandler,
		UserHandler: userHandler,
	})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	} else {
		docs.SwaggerInfo.Host = "localhost:" + cfg.ServerPort
	}
	logger.Info("swagger documentation available", "url", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html")

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info("server listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newUserRepository(cfg *config.Config) (repository.UserRepository, error) {
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		gormDB, err := db.NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("database init: %w", err)
		}
		return repository.NewGormUserRepository(gormDB), nil
	default:
		return repository.NewMemoryUserRepository(), nil
	}
}
