package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/config"
	dbRedis "github.com/kailas-cloud/findex/internal/db/redis"
	"github.com/kailas-cloud/findex/internal/domain"
	logpkg "github.com/kailas-cloud/findex/internal/logger"
	"github.com/kailas-cloud/findex/internal/metrics"
	auditrepo "github.com/kailas-cloud/findex/internal/repository/audit"
	findingrepo "github.com/kailas-cloud/findex/internal/repository/finding"
	"github.com/kailas-cloud/findex/internal/repository/respcache"
	chiTransport "github.com/kailas-cloud/findex/internal/transport/chi"
	openaiLLM "github.com/kailas-cloud/findex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/findex/internal/usecase/answer"
	classifyuc "github.com/kailas-cloud/findex/internal/usecase/classify"
	extractuc "github.com/kailas-cloud/findex/internal/usecase/extract"
	healthuc "github.com/kailas-cloud/findex/internal/usecase/health"
	routeruc "github.com/kailas-cloud/findex/internal/usecase/router"
	"github.com/kailas-cloud/findex/internal/version"
)

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

	logger.Info("Starting findex API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register query metrics explicitly (no init())
	metrics.RegisterQueryMetrics()

	findingRepo := findingrepo.New(store)
	if err := findingRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure findings index", zap.Error(err))
	}

	completer := openaiLLM.NewCompleter(&openaiLLM.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:    logger,
	})
	logger.Info("LLM completer created",
		zap.String("model", cfg.LLM.Model),
		zap.String("base_url", cfg.LLM.BaseURL),
	)

	cache := respcache.New(
		store, time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.CacheTotal, logger,
	)
	auditSink := auditrepo.New(store, logger)

	// Project vocabulary for the classifier comes from the index itself.
	// Best-effort: quoted project names still match without it.
	projects, err := findingRepo.ListProjects(ctx)
	if err != nil {
		logger.Warn("Project vocabulary unavailable", zap.Error(err))
	}

	classifier := classifyuc.New(classifyuc.Config{
		Departments: cfg.Routing.Departments,
		Projects:    projects,
	})
	extractor := extractuc.New()
	formatter := answeruc.New(completer, cfg.Routing.ContextTokenBudget)

	routerSvc := routeruc.New(
		classifier, extractor, findingRepo, formatter, cache,
		auditAdapter{sink: auditSink},
		routeruc.Config{
			MaxRows:       cfg.Routing.MaxRows,
			ConfirmWindow: time.Duration(cfg.Routing.ConfirmWindowSec) * time.Second,
			SnapshotCap:   cfg.Routing.FallbackSnapshotCap,
		},
	)
	// Warm the degraded-mode snapshot so keyword fallback works from the
	// first request.
	if err := routerSvc.RefreshSnapshot(ctx); err != nil {
		logger.Warn("Fallback snapshot not warmed", zap.Error(err))
	}

	healthSvc := healthuc.New(store, newLLMHealthChecker(completer))

	server := chiTransport.NewServer(routerSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// auditAdapter bridges the router audit contract onto the audit sink.
type auditAdapter struct {
	sink *auditrepo.Sink
}

func (a auditAdapter) Emit(ctx context.Context, e routeruc.AuditEntry) {
	a.sink.Emit(ctx, auditrepo.Record{
		SessionID: e.SessionID,
		QueryText: e.QueryText,
		Strategy:  e.Strategy,
		ElapsedMs: e.ElapsedMs,
		Degraded:  e.Degraded,
	})
}

// llmHealthChecker wraps domain.Completer to implement health.LLMChecker.
type llmHealthChecker struct {
	completer domain.Completer
}

func newLLMHealthChecker(completer domain.Completer) *llmHealthChecker {
	return &llmHealthChecker{completer: completer}
}

func (h *llmHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.completer.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("llm health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
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

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
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
