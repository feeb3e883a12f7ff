package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/config"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/database"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/logging"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("BOOKCANVAS_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, level, err := logging.NewLeveled(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := database.Connect(cfg.Database); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	srv, err := server.New(cfg, database.GetDB(), logger)
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *configPath != "" {
		go watchLogLevel(ctx, *configPath, logger, level)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// watchLogLevel applies logging.level changes from the config file without a
// restart. Other settings need one.
func watchLogLevel(ctx context.Context, path string, logger *zap.Logger, level zap.AtomicLevel) {
	err := config.Watch(ctx, path, func(next *config.Config) {
		if err := logging.SetLevel(level, next.Logging.Level); err != nil {
			logger.Warn("ignoring log level from config", zap.Error(err))
			return
		}
		logger.Info("log level changed", zap.String("level", level.String()))
	}, func(err error) {
		logger.Warn("config reload failed", zap.Error(err))
	})
	if err != nil {
		logger.Warn("config watcher stopped", zap.Error(err))
	}
}
