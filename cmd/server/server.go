package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	shopHandler "github.com/quipper/poc/shopify/be/internal/controller/http/shop"
	nonceSqlite "github.com/quipper/poc/shopify/be/internal/repositories/nonce/sqlite"
	sessionSqlite "github.com/quipper/poc/shopify/be/internal/repositories/session/sqlite"
	webhookSqlite "github.com/quipper/poc/shopify/be/internal/repositories/webhook/sqlite"
	"github.com/quipper/poc/shopify/be/internal/shopify"
	"github.com/quipper/poc/shopify/be/pkg/common/config"
	"github.com/quipper/poc/shopify/be/pkg/common/logger"
)

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config: %v", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.LogLevel)
	logger.Info("starting server")

	// All three stores must open (and reload cleanly) before any traffic
	// is served; an unreadable store at startup is fatal.
	sessionRepo, err := sessionSqlite.NewSQLiteRepo(cfg.SessionDBPath)
	if err != nil {
		logger.Error("init session repo: %v", err)
		os.Exit(1)
	}
	nonceRepo, err := nonceSqlite.NewSQLiteRepo(cfg.NonceDBPath)
	if err != nil {
		logger.Error("init nonce repo: %v", err)
		os.Exit(1)
	}
	webhookRepo, err := webhookSqlite.NewSQLiteRepo(cfg.WebhookDBPath)
	if err != nil {
		logger.Error("init webhook repo: %v", err)
		os.Exit(1)
	}

	api := shopify.NewAPI(shopify.Config{
		ClientID:     cfg.APIKey,
		ClientSecret: cfg.APISecret,
		AppBaseURL:   cfg.AppBaseURL,
		Scopes:       cfg.Scopes,
		AccessMode:   cfg.AccessMode,
		APIVersion:   cfg.APIVersion,
	}, sessionRepo, shopify.WithClient(shopify.NewClient(
		shopify.WithRetryPolicy(cfg.RetryBaseDelay, cfg.RetryMaxAttempts),
		shopify.WithCallTimeout(cfg.RequestTimeout),
	)))

	h := shopHandler.NewHandler(cfg, sessionRepo, nonceRepo, webhookRepo, api)
	router := chi.NewRouter()
	const maxBodySize = 2_100_000
	router.Use(middleware.RequestSize(maxBodySize))
	router.Use(middleware.Recoverer)
	router.Mount("/", h.Router())

	addr := ":" + cfg.Port
	server := &http.Server{Addr: addr, Handler: withCORS(router)}

	go func() {
		logger.Info("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown: %v", err)
	}
	sessionRepo.Disconnect()
	nonceRepo.Disconnect()
	webhookRepo.Disconnect()
	logger.Info("server stopped")
}
