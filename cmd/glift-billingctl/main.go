package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glift-app/glift-billing/internal/app/glift"
	"github.com/glift-app/glift-billing/internal/cli"
	"github.com/glift-app/glift-billing/internal/config"
	"github.com/glift-app/glift-billing/internal/lib/jwt"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wire := func(ctx context.Context) (*cli.App, error) {
		cfg := config.MustLoad()
		// Счётчики CLI никуда не экспортируются.
		deps, err := glift.NewDeps(ctx, cfg, logger, prometheus.NewRegistry())
		if err != nil {
			return nil, err
		}
		return &cli.App{
			Users:        deps.DB,
			Synchronizer: deps.Synchronizer,
			Tokens:       jwt.NewMaker(cfg.JWTSecret, cfg.TokenTTL),
			Close:        deps.Close,
		}, nil
	}

	if err := cli.Execute(ctx, logger, wire); err != nil {
		os.Exit(1)
	}
}
