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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/ntn-pool-analyzer/internal/config"
	"github.com/signalsfoundry/ntn-pool-analyzer/internal/httpx"
	"github.com/signalsfoundry/ntn-pool-analyzer/internal/logging"
	"github.com/signalsfoundry/ntn-pool-analyzer/internal/observability"
	"github.com/signalsfoundry/ntn-pool-analyzer/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.NewFromEnv().With(logging.String("service", "report-server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error(ctx, "database open failed", logging.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := store.RunMigrations(ctx, pool); err != nil {
		log.Error(ctx, "migrations failed", logging.Any("error", err))
		os.Exit(1)
	}

	repo := store.NewRepository(pool)

	collector, err := observability.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		log.Error(ctx, "metrics setup failed", logging.Any("error", err))
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(15 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "report-server"})
	})
	router.Handle("/metrics", collector.Handler())

	router.Get("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		limit := httpx.ParseLimit(r.URL.Query().Get("limit"), 50)
		runs, err := repo.ListRuns(r.Context(), limit)
		if err != nil {
			httpx.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": runs})
	})

	router.Get("/api/runs/{id}/report", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		report, err := repo.GetReport(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrRunNotFound) {
				httpx.WriteJSON(w, http.StatusNotFound, map[string]any{"error": "run not found"})
				return
			}
			httpx.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, report)
	})

	router.Get("/api/runs/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		kind := r.URL.Query().Get("kind")
		limit := httpx.ParseLimit(r.URL.Query().Get("limit"), 500)

		events, err := repo.ListEvents(r.Context(), id, kind, limit)
		if err != nil {
			httpx.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": events})
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "report server listening", logging.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(ctx, "server error", logging.Any("error", err))
		os.Exit(1)
	}
}
