package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	stack, err := cli.OpenStack(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start tracker",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpStartup)
		os.Exit(1)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error("Cleanup error", applog.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, stack.Tracker, apphttp.Options{
		CurrencySymbol: cfg.CurrencySymbol,
		RateLimit:      cfg.RateLimit,
		TrustedProxies: cfg.TrustedProxies,
	}, logger)
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expense tracker",
			"port", cfg.Port,
			applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.ViewCacheTTL > 0 {
		g.Go(func() error {
			cache.NewJanitor(logger, stack.Views).Run(gctx, cfg.ViewCacheTTL)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
