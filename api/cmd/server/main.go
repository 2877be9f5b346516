package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"geometryConverter/api/config"
	"geometryConverter/api/handlers"
	"geometryConverter/api/service"
	"geometryConverter/api/staging"
	"geometryConverter/worker/converter"
	"geometryConverter/worker/pool"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	area, err := staging.New(cfg.UploadDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := area.Close(); err != nil {
			logger.Warn("Failed to remove staging root", zap.Error(err))
		}
	}()

	if n, err := area.Sweep(cfg.StaleUploadAge); err != nil {
		logger.Warn("Initial staging sweep failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("Removed stale uploads", zap.Int("count", n))
	}
	go area.RunJanitor(ctx, cfg.JanitorInterval(), cfg.StaleUploadAge)

	workers := pool.NewWorkerPool(cfg.MaxConcurrent)
	ogr := converter.NewOgr2Ogr(cfg.ConverterPath, cfg.ConversionTimeout, logger)
	svc := service.NewConversionService(area, ogr, workers, cfg.ConversionTimeout, logger)
	convert := handlers.NewConvertHandler(svc, cfg.MaxUploadBytes(), logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(convert, cfg.AllowedOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Geometry Converter API listening",
			zap.String("address", server.Addr),
			zap.String("upload_dir", area.Root()),
			zap.String("converter", cfg.ConverterPath),
			zap.Int("workers", workers.Size()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	workers.Wait()

	return nil
}
