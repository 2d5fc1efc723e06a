/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the commission engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (environment, then flags)
  2. Build the zap logger
  3. Initialize SQLite store and seed rates
  4. Connect the Redis rate cache (optional)
  5. Create API handler, router and payout scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr    HTTP listen address (overrides APP_ADDR)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database
  -seed    YAML rate seed file (overrides RATE_SEED_FILE)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the payout scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (APP_SHUTDOWN_TIMEOUT)
  4. Close Redis and database connections

EXAMPLES:
  # Run with file database and seeded rates
  ./server -db="./data/commissions.db" -seed="./config/rates.yaml"

  # Run with in-memory database and a Redis cache
  REDIS_ADDR=localhost:6379 ./server -db=":memory:"

ENVIRONMENT:
  See config/config.go for the full list.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/warp/commission-engine/api"
	"github.com/warp/commission-engine/config"
	"github.com/warp/commission-engine/logger"
	"github.com/warp/commission-engine/rates"
	"github.com/warp/commission-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags
	flag.StringVar(&cfg.AppAddr, "addr", cfg.AppAddr, "HTTP listen address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.RateSeedFile, "seed", cfg.RateSeedFile, "YAML rate seed file")
	flag.Parse()

	format := cfg.LogFormat
	if cfg.IsProduction() {
		format = "json"
	}
	log, err := logger.New(&logger.Config{Level: cfg.LogLevel, Format: format, Output: "stdout"})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx := context.Background()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer store.Close()

	if cfg.RateSeedFile != "" {
		if err := seedRates(ctx, store, cfg.RateSeedFile, log); err != nil {
			return err
		}
	}

	// Rate cache
	var provider rates.Provider = store
	var cache *rates.RedisCache
	if cfg.RedisAddr != "" {
		client, err := rates.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, rate cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer closeRedis(client, log)
			cache = rates.NewRedisCache(store, client, cfg.RateCacheTTL, log.Named("rates"))
			provider = cache
			log.Info("rate cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.RateCacheTTL))
		}
	}

	// Initialize handler
	handler := api.NewHandler(store, api.Options{
		Provider:     provider,
		Cache:        cache,
		RatePolicy:   cfg.RateFallback(),
		DatePolicy:   cfg.DateFallback(),
		BatchWorkers: cfg.BatchWorkers,
		Logger:       log,
		Metrics:      api.NewMetrics(),
	})

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:    cfg.CORSOrigins,
		RequestsPerMinute: cfg.RateLimitRPM,
		ForceSSL:          cfg.IsProduction(),
	})

	scheduler := api.NewPayoutScheduler(handler)
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.AppAddr),
			zap.String("env", cfg.AppEnv),
			zap.String("date_policy", string(cfg.DateFallback())),
			zap.String("rate_policy", string(cfg.RateFallback())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		scheduler.Stop()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down server", zap.Stringer("signal", sig))
	}

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// seedRates upserts every entry of the seed file into the store.
func seedRates(ctx context.Context, store *sqlite.Store, path string, log *zap.Logger) error {
	seed, err := rates.LoadStaticFile(path)
	if err != nil {
		return err
	}
	entries := seed.Entries()
	for _, e := range entries {
		if err := store.UpsertRate(ctx, e); err != nil {
			return fmt.Errorf("seed rate %s/%d/%s: %w", e.Role, e.CommitmentMonths, e.Liquidity, err)
		}
	}
	log.Info("rates seeded", zap.String("file", path), zap.Int("entries", len(entries)))
	return nil
}

func closeRedis(client *redis.Client, log *zap.Logger) {
	if err := client.Close(); err != nil {
		log.Warn("close redis", zap.Error(err))
	}
}
