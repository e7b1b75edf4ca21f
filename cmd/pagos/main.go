package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"pagos/internal/backend"
	"pagos/internal/cli"
	apphttp "pagos/internal/http"
	"pagos/internal/ledger"
	applog "pagos/internal/log"
	"pagos/internal/ratefeed"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(applog.ComponentApp, cfg.LogLevel)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.ErrorContext(context.Background(), "Backend cleanup failed", "error", err)
		}
	}()

	sinks, err := factory.CreateSinks(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	book := ledger.New(result.Store, ledger.Options{
		FeeRate:  cfg.FeeRate,
		Policy:   cfg.DuplicateScope,
		Archiver: sinks,
		Logger:   logger.WithComponent(applog.ComponentLedger),
	})
	rates := ratefeed.New(ratefeed.Options{
		URL:           cfg.RatesURL,
		OfficialLabel: cfg.RatesOfficialLabel,
		ParallelLabel: cfg.RatesParallelLabel,
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Ledger:       book,
		Rates:        rates,
		Logger:       logger,
		RateLimitRPM: cfg.RateLimitRPM,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	if err := book.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start ledger", "error", err)
		os.Exit(1)
	}
	defer book.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "Starting pagos server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"fee_rate", cfg.FeeRate.String(),
			"duplicate_scope", string(cfg.DuplicateScope))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(context.Background(), "Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		rates.Load(gctx)
		return nil
	})

	if result.Listen != nil {
		g.Go(func() error {
			err := result.Listen(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(gctx, "Change listener stopped", "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}
