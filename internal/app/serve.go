package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/sawaflix/backend/internal/config"
	"github.com/sawaflix/backend/internal/db"
	"github.com/sawaflix/backend/internal/handlers"
	"github.com/sawaflix/backend/internal/httpserver"
	"github.com/sawaflix/backend/internal/logging"
	"github.com/sawaflix/backend/internal/middleware"
)

func loadConfig(cmd *cli.Command) (config.Config, error) {
	return config.Load(cmd.String("config"))
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.SlogLevel())
	slog.SetDefault(logger)
	ctx = logging.WithLogger(ctx, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb, err := db.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		logger.Info("redis connected, using it for sessions and search cache")
	}

	built, err := buildDependencies(ctx, logger, pool, rdb, cfg)
	if err != nil {
		return fmt.Errorf("build dependencies: %w", err)
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, built.deps)

	handler := middleware.RequestLogger(logger)(built.gate.Handler(mux))

	logger.Info("starting http server", "port", cfg.AppPort)
	return httpserver.New(cfg.AppPort, handler, httpserver.Options{}).Run(ctx)
}
