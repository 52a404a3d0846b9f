package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authclient "github.com/viridial-group/viridial/internal/clients/auth"
	"github.com/viridial-group/viridial/internal/config"
	"github.com/viridial-group/viridial/internal/metrics"
	"github.com/viridial-group/viridial/internal/session"
	"github.com/viridial-group/viridial/internal/web"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting viridial-web", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	store := buildTokenStore(cfg.Session, log)

	ac, err := authclient.New(cfg.Auth.BaseURL, authclient.WithTimeout(cfg.Auth.Timeout))
	if err != nil {
		log.Error("auth_client_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	sess := session.New(store, ac)
	sess.SetMetrics(metrics.NewSession())

	// Стартовое восстановление сессии: ограничиваем общим сервисным таймаутом,
	// чтобы недоступный auth-сервис не задержал запуск навсегда.
	bootCtx, bootCancel := context.WithTimeout(rootCtx, cfg.Timeouts.Service)
	if err := sess.Bootstrap(bootCtx); err != nil {
		// Не фатально: шлюз поднимается в Unauthenticated.
		log.Warn("session_bootstrap_failed", slog.String("err", err.Error()))
	}
	bootCancel()

	log.Info("session_state", slog.String("state", sess.State().String()))

	apiHandler := web.NewRouter(sess, ac, web.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("gateway_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// buildTokenStore — файловое хранилище, а если путь состояния
// не разрешается (нет домашнего каталога и т.п.) — no-op деградация.
func buildTokenStore(cfg config.SessionConfig, log *slog.Logger) session.TokenStore {
	store, err := session.NewFileStore(cfg.StateFile)
	if err != nil {
		log.Warn("token_store_unavailable",
			slog.String("err", err.Error()),
		)
		return session.NewNoopStore()
	}

	return store
}

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
