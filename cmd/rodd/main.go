package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/rod-records/internal/app"
	"github.com/joseph-ayodele/rod-records/internal/common"
)

func main() {
	cfg, err := common.LoadConfig(os.Getenv("ROD_CONFIG"))
	if err != nil {
		common.NewLogger(os.Stderr, common.LogConfig{Format: "json"}).Error("load config", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(os.Stdout, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("startup", "error", err)
		os.Exit(1)
	}
	if a.DB != nil {
		if err := a.DB.HealthCheck(ctx, cfg.Database.DialTimeout); err != nil {
			logger.Error("DB health failed", "error", err)
			a.Close(context.Background())
			os.Exit(1)
		}
		logger.Info("DB health OK", "driver", cfg.Database.Driver)
	}

	err = a.Serve(ctx)
	a.Close(context.Background())
	if err != nil {
		logger.Error("serve", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
