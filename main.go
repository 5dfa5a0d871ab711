package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"todoAPI/handlers"
	"todoAPI/internal/config"
	"todoAPI/internal/logging"
	"todoAPI/middleware"
	"todoAPI/repository"
	"todoAPI/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer func() {
		slog.Info("Closing database connection...")
		store.Close()
	}()
	slog.Info("Storage initialized", "driver", cfg.DBDriver)

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	services.InitPrometheus(prometheus.DefaultRegisterer)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustedProxies...)
	go rateLimiter.CleanupVisitors(ctx)

	todoService := services.NewTodoService(store)

	server := http.Server{
		Addr:         cfg.Addr(),
		Handler:      newRouter(cfg, store, todoService, rateLimiter),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Error starting server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	slog.Info("Server shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if cfg.DBDriver == config.DriverSQLite {
		store, err := repository.OpenSQLite(initCtx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	pool, err := repository.NewPostgresPool(initCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	store := repository.NewPostgresStore(pool)
	if err := store.EnsureSchema(initCtx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func newRouter(cfg *config.Config, store repository.Store, todoService *services.TodoService, rateLimiter *middleware.RateLimiter) http.Handler {
	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(rateLimiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	if cfg.MetricsUser != "" {
		standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	}
	if cfg.PprofSecret != "" {
		pprofRouter := standardRouter.PathPrefix("/debug/pprof").Subrouter()
		pprofRouter.Use(middleware.PprofSecurityMiddleware(cfg.PprofSecret))
		pprofRouter.HandleFunc("/cmdline", pprof.Cmdline)
		pprofRouter.HandleFunc("/profile", pprof.Profile)
		pprofRouter.HandleFunc("/symbol", pprof.Symbol)
		pprofRouter.HandleFunc("/trace", pprof.Trace)
		pprofRouter.PathPrefix("/").HandlerFunc(pprof.Index)
	}

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "todo-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	todoListHandler := handlers.NewTodoListHandler(todoService, api)
	todoListHandler.RegisterRoutes()

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.CORSAllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Location", "X-Request-ID"}),
	)
	recovery := gorillaHandlers.RecoveryHandler(
		gorillaHandlers.RecoveryLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError)),
	)

	return recovery(corsHandler(middleware.LoggingMiddleware(r)))
}
