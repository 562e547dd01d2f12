package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toychat/internal/api"
	"toychat/internal/api/config"
	"toychat/internal/api/handler"
	"toychat/internal/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// tokend 独立的入会令牌签发服务，部署在持有媒体服务密钥的一侧。
func main() {
	if err := config.LoadConfig(); err != nil {
		log.Error("Fatal error: failed to load configuration", "err", err)
		panic(err)
	}
	cfg := config.Cfg

	logger.InitLogger()

	if cfg.LiveKit.APIKey == "" || cfg.LiveKit.APISecret == "" {
		log.Error("Fatal error: livekit api_key/api_secret are required")
		panic("missing livekit credentials")
	}

	tokenHandler := handler.NewTokenHandler(&cfg.LiveKit)
	router := api.SetupTokenRouter(tokenHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.LiveKit.TokenPort),
		Handler: router,
	}
	g.Go(func() error {
		log.Info("Token Server starting...", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Token Server shutdown failed", "err", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
	}
	log.Info("App exited successfully.")
}
