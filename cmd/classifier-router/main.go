package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classrouter/internal/ops"
	"classrouter/internal/platform/config"
	"classrouter/internal/platform/logger"
	"classrouter/internal/services/classifier/module"
	"classrouter/internal/services/classifier/service"
)

func main() {
	logger.Init(logger.FromEnv())
	l := logger.Get()
	root := config.New()

	mod, err := module.New(module.FromConfig(root))
	if err != nil {
		l.Fatal().Err(err).Msg("module build failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := mod.Service()
	if err := svc.Initialize(ctx); err != nil {
		l.Fatal().Err(err).Msg("service initialization failed")
	}

	var opsSrv *ops.Server
	if port := root.Prefix("OPS_").MayString("PORT", ""); port != "" {
		opsSrv = ops.New(":"+port, ops.Deps{
			Router: mod.Router(),
			Ready:  func() bool { return svc.State() == service.StateRunning },
		})
		opsSrv.Start()
	}

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Error().Err(err).Msg("service loop failed")
	}

	if opsSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := opsSrv.Shutdown(sctx); err != nil {
			l.Error().Err(err).Msg("ops server shutdown failed")
		}
	}
	l.Info().Msg("classifier-router stopped")
}
