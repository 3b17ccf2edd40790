// cmd/txn-server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"steam-microtxn/internal/appticket"
	"steam-microtxn/internal/catalog"
	"steam-microtxn/internal/common/config"
	"steam-microtxn/internal/common/logger"
	"steam-microtxn/internal/common/observability"
	"steam-microtxn/internal/purchase"
	"steam-microtxn/internal/server"
	"steam-microtxn/internal/steam"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting txn server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("addr", cfg.Server.Addr()),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// The catalog is the price authority; a malformed definition must
	// abort startup rather than serve wrong prices.
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		zapLog.Fatal("catalog load failed", zap.Error(err), zap.String("path", cfg.Catalog.Path))
	}
	zapLog.Info("catalog loaded", zap.Int("items", cat.Len()))

	verifier, err := appticket.NewVerifier(
		cfg.AppTicket.Key,
		cfg.AppTicket.AppID,
		config.GetDuration(cfg.AppTicket.MaxAge),
		nil,
		log,
	)
	if err != nil {
		zapLog.Fatal("app ticket verifier init failed", zap.Error(err))
	}

	settlement := steam.NewClient(cfg.Steam, cfg.App.Development(), log)
	handler := purchase.NewHandler(cat, settlement, obs, log)
	srv := server.New(cfg, handler, verifier, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	case sig := <-stop:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("txn server stopped")
}
