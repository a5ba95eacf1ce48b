package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/riteshkumar/ledger-assistant/internal/audit"
	"github.com/riteshkumar/ledger-assistant/internal/config"
	"github.com/riteshkumar/ledger-assistant/internal/handler"
	"github.com/riteshkumar/ledger-assistant/internal/idempotency"
	"github.com/riteshkumar/ledger-assistant/internal/ledger"
	"github.com/riteshkumar/ledger-assistant/internal/logging"
	"github.com/riteshkumar/ledger-assistant/internal/metrics"
	"github.com/riteshkumar/ledger-assistant/internal/repository"
	"github.com/riteshkumar/ledger-assistant/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialise logger
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheusCollector("ledger")
	if err := collector.Register(registry); err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	// Audit repositories: Postgres when configured, memory otherwise
	auditRepo, journalRepo, closeDB := openRepositories(cfg, logger)
	defer closeDB()

	sink := audit.NewBreakerSink(audit.NewRepositorySink(auditRepo, journalRepo), audit.DefaultBreakerConfig(), collector, logger)
	writer := audit.NewWriter(sink, audit.WriterConfig{
		QueueSize:      cfg.AuditQueueSize,
		Workers:        cfg.AuditWorkers,
		MaxWaitTime:    10 * time.Millisecond,
		ReportInterval: 5 * time.Second,
	}, collector, logger)

	// Idempotency store
	idemStore, closeIdem := openIdempotencyStore(cfg, logger)
	defer closeIdem()

	// Ledger core
	engine := ledger.NewEngine(ledger.NewDemoStore())

	// Initialise services
	accountService := service.NewAccountService(engine, writer, logger)
	transactionService := service.NewTransactionService(engine, service.NewStaticRateProvider(cfg.Rates), writer, collector, logger)
	auditService := service.NewAuditService(engine, auditRepo, journalRepo, logger)

	// Initialise handlers
	accountHandler := handler.NewAccountHandler(accountService, logger)
	transactionHandler := handler.NewTransactionHandler(transactionService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)

	// Setup router
	router := mux.NewRouter()

	api := router.NewRoute().Subrouter()
	accountHandler.RegisterRoutes(api)
	transactionHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	api.Use(handler.RateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)))
	api.Use(idempotency.Middleware(idemStore, collector, logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})).Methods(http.MethodGet)

	router.Use(handler.RequestIDMiddleware())
	router.Use(handler.LoggingMiddleware(logger))

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a go routine
	go func() {
		logger.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Drain pending audit entries before the repositories go away
	if err := writer.Flush(cfg.ShutdownTimeout); err != nil {
		logger.Warn("audit flush incomplete", zap.Error(err), zap.Int("pending", writer.Stats().QueueDepth))
	}
	if err := writer.Close(); err != nil {
		logger.Warn("audit writer close failed", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}

func openRepositories(cfg *config.Config, logger *zap.Logger) (repository.AuditRepository, repository.TransactionRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, audit trail kept in memory")
		return repository.NewMemoryAuditRepository(), repository.NewMemoryTransactionRepository(), func() {}
	}

	db, err := connectDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		db.Close()
		logger.Fatal("failed to prepare database schema", zap.Error(err))
	}

	logger.Info("connected to database successfully")
	return repository.NewAuditRepository(db), repository.NewTransactionRepository(db), func() { db.Close() }
}

func openIdempotencyStore(cfg *config.Config, logger *zap.Logger) (idempotency.Store, func()) {
	if cfg.RedisAddr == "" {
		return idempotency.NewMemoryStore(cfg.IdempotencyTTL), func() {}
	}

	redisCfg := idempotency.DefaultRedisConfig()
	redisCfg.Addr = cfg.RedisAddr
	store, err := idempotency.NewRedisStore(redisCfg, cfg.IdempotencyTTL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err), zap.String("addr", cfg.RedisAddr))
	}
	logger.Info("idempotency keys stored in redis", zap.String("addr", cfg.RedisAddr))
	return store, store.Close
}

// connectDB establishes a connection to the Postgres database
func connectDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Confirm connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
