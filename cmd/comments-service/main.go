package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pribylovaa/go-blog-comments/internal/auth"
	"github.com/pribylovaa/go-blog-comments/internal/config"
	"github.com/pribylovaa/go-blog-comments/internal/service"
	csmongo "github.com/pribylovaa/go-blog-comments/internal/storage/mongo"
	commentshttp "github.com/pribylovaa/go-blog-comments/internal/transport/http"
)

// Константы окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting blog-comments-service", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	mongoStore, err := csmongo.New(dbCtx, cfg)
	dbCancel()
	if err != nil {
		log.Error("mongo_connect_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	log.Info("mongo_connected")

	// Идентити-провайдер: верификация HS256 + опциональный Redis-кэш токенов.
	var verifier auth.TokenVerifier = auth.NewJWT(cfg.Auth.JWTSecret)

	var tokenCache auth.TokenCache
	if cfg.Auth.CacheURL != "" {
		tokenCache, err = auth.NewRedisCache(cfg.Auth.CacheURL, "")
		if err != nil {
			log.Error("auth_cache_connect_failed", slog.String("err", err.Error()))
			rootCancel()
			_ = mongoStore.Close(context.Background())
			os.Exit(1)
		}

		verifier = auth.NewCachedVerifier(verifier, tokenCache, cfg.Auth.CacheTTL)
		log.Info("auth_cache_connected")
	}

	svc := service.New(mongoStore, *cfg)
	log.Info("service_initialized")

	var ready int32 // 0 — not ready; 1 — ready

	router := commentshttp.NewRouter(svc, verifier, commentshttp.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
		Debug:   cfg.Env == envLocal || cfg.Env == envDev,
		Ready:   func() bool { return atomic.LoadInt32(&ready) == 1 },
	})

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	}
	shutdownCancel()

	if tokenCache != nil {
		_ = tokenCache.Close()
	}

	rootCancel()
	_ = mongoStore.Close(context.Background())

	log.Info("service_stopped")
	os.Exit(0)
}

// setupLogger — текстовый debug-лог локально, JSON в dev/prod.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
