// cmd/worker-manager/main.go
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"escapade/internal/common/camunda"
	"escapade/internal/common/config"
	"escapade/internal/common/database"
	providerhttp "escapade/internal/common/http"
	"escapade/internal/common/logger"
	"escapade/internal/common/observability"
	"escapade/internal/livesearch"
	"escapade/internal/storage"

	slf "escapade/internal/workers/flights/search-live-flights"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateForWorkers(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	repo := storage.NewSearchRepository(pg, log)
	if err := repo.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("search schema setup failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (optional) ---
	var indexer *storage.ItineraryIndexer
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		indexer = storage.NewItineraryIndexer(esClient, cfg.Database.Elasticsearch.Index, log)
		if err := indexer.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("itinerary index setup failed", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", cfg.Database.Elasticsearch.Index))
	} else {
		zapLog.Info("Elasticsearch not configured, itinerary indexing disabled")
	}

	// --- Live search ---
	providerClient := providerhttp.NewClient(
		config.GetDuration(cfg.Provider.Timeout),
		providerhttp.WithAuth(cfg.Provider.Host, cfg.Provider.APIKey),
		providerhttp.WithRateLimit(cfg.Provider.RequestsPerSecond, cfg.Provider.Burst),
	)
	coordinator := livesearch.NewCoordinator(
		providerClient,
		livesearch.ConfigFrom(cfg.Provider, cfg.Search),
		log,
		livesearch.WithCache(storage.NewResultCache(rdb, log)),
		livesearch.WithObservability(obs),
	)

	opts := slf.HandlerOptions{
		AppConfig:     cfg,
		Searcher:      coordinator,
		Store:         repo,
		Publisher:     zeebe,
		Observability: obs,
		Logger:        log,
	}
	if indexer != nil {
		opts.Index = indexer
	}
	handler, err := slf.NewHandler(opts)
	if err != nil {
		zapLog.Fatal("failed to create search-live-flights handler", zap.Error(err))
	}

	var workers []*camunda.CamundaWorker
	if handler.IsEnabled() {
		wc := handler.GetConfig()
		w := camunda.NewWorker(zeebe.GetClient(), slf.TaskType, wc.MaxJobsActive, wc.Timeout, handler, zapLog)
		w.Start()
		workers = append(workers, w)
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", slf.TaskType))
	}

	srv := &http.Server{Addr: cfg.Metrics.Address, Handler: newOpsMux(zeebe, pg, rdb)}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func newOpsMux(zeebe *camunda.Client, pg *database.PostgresClient, rdb *database.RedisClient) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		for name, check := range map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
		} {
			if err := check(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		checks["time"] = time.Now().Format(time.RFC3339)
		if status == http.StatusOK {
			checks["status"] = "ready"
		} else {
			checks["status"] = "not_ready"
		}
		writeStatus(w, status, checks)
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
