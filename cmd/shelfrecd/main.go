package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/app"
	"github.com/kailas-cloud/shelfrec/internal/config"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	logpkg "github.com/kailas-cloud/shelfrec/internal/logger"
	"github.com/kailas-cloud/shelfrec/internal/metrics"
	chiTransport "github.com/kailas-cloud/shelfrec/internal/transport/chi"
	"github.com/kailas-cloud/shelfrec/internal/version"
)

const sessionSweepEvery = time.Minute

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shelfrec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("datasets_dir", cfg.Datasets.Dir),
		zap.String("image_cache", cfg.Images.Cache.Driver),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a, err := app.New(logpkg.ContextWithLogger(ctx, logger), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer a.Close()

	// A failed domain stays unavailable; the others keep serving.
	if err := a.Catalogs.LoadAll(logpkg.ContextWithLogger(ctx, logger)); err != nil {
		logger.Warn("Some datasets failed to load", zap.Error(err))
	}
	for _, st := range a.Catalogs.Status() {
		logger.Info("Domain status",
			zap.String("domain", string(st.Kind)),
			zap.Bool("available", st.Available),
			zap.Int("items", st.Items),
		)
	}

	go a.SweepSessions(ctx, sessionSweepEvery, logger)

	defaultTopN := make(map[kind.Kind]int, len(cfg.Search.DefaultTopN))
	for name, n := range cfg.Search.DefaultTopN {
		defaultTopN[kind.Kind(name)] = n
	}

	server := chiTransport.NewServer(
		a.Recommend, a.Catalogs, a.Sessions, a.Covers, a.Health,
		chiTransport.Options{
			MaxTopN:           cfg.Search.MaxTopN,
			DefaultTopN:       defaultTopN,
			RefreshMin:        config.Seconds(cfg.Refresh.MinSec),
			RefreshMax:        config.Seconds(cfg.Refresh.MaxSec),
			RefreshDefault:    config.Seconds(cfg.Refresh.DefaultSec),
			MaxUploadBytes:    int64(cfg.HTTP.MaxUploadMB) << 20,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		},
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "route not found")
	})
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       config.Seconds(cfg.HTTP.ReadTimeoutSec),
		ReadHeaderTimeout: config.Seconds(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout:      config.Seconds(cfg.HTTP.WriteTimeoutSec),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	// Cancelling ctx ends open refresh streams and the session sweeper.
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.HTTP.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("domain", chi.URLParam(r, "domain")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
