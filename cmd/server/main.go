// Package main runs the reputation score service: the HTTP API, the
// KRNL client, storage-backed caching and the credit check ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"proofscore/internal/api"
	"proofscore/internal/chain"
	"proofscore/internal/credit"
	"proofscore/internal/krnl"
	"proofscore/internal/observability"
	"proofscore/internal/score"
	"proofscore/internal/storage"
	chstore "proofscore/internal/storage/clickhouse"
	"proofscore/internal/storage/memory"
	"proofscore/internal/storage/migrations"
	pgstore "proofscore/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("API_ADDR", ":3001"), "HTTP API listen address")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	krnlURL := flag.String("krnl-api-url", envOr("KRNL_API_URL", "https://api.krnl.io"), "KRNL API base URL")
	krnlKey := flag.String("krnl-api-key", os.Getenv("KRNL_API_KEY"), "KRNL API key")
	webhookSecret := flag.String("webhook-secret", os.Getenv("KRNL_WEBHOOK_SECRET"), "KRNL webhook HMAC secret (empty disables the webhook)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, moves the audit ledger to ClickHouse)")
	rpcEndpoints := flag.String("rpc-endpoints", os.Getenv("ETH_RPC_ENDPOINTS"), "Comma-separated chainId=url JSON-RPC endpoints for fallback scoring")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	allowFallback := flag.Bool("allow-fallback", false, "Serve degraded on-chain scores when KRNL is unavailable")
	cacheTTL := flag.Duration("cache-ttl", score.DefaultCacheTTL, "Score cache TTL")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if *krnlKey == "" {
		logger.Println("Warning: no KRNL API key configured, requests will be unauthenticated")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	metrics := observability.NewMetrics("proofscore")

	// Create stores
	cache, checks, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// KRNL client
	var clientOpts []krnl.ClientOption
	if *krnlKey != "" {
		clientOpts = append(clientOpts, krnl.WithAPIKey(*krnlKey))
	}
	client := krnl.NewHTTPClient(*krnlURL, clientOpts...)

	// Chain collaborators
	endpoints, err := parseRPCEndpoints(*rpcEndpoints)
	if err != nil {
		logger.Fatalf("Invalid --rpc-endpoints: %v", err)
	}
	if *allowFallback && len(endpoints) == 0 {
		logger.Fatal("--allow-fallback requires --rpc-endpoints")
	}
	metricsSource := chain.NewRPCMetricsSource(endpoints)

	resolver := score.NewResolver(score.Options{
		Client:        client,
		Cache:         cache,
		Checks:        checks,
		ChainMetrics:  metricsSource,
		Validator:     chain.NewEVMValidator(),
		Engine:        credit.NewEngine(),
		AllowFallback: *allowFallback,
		CacheTTL:      *cacheTTL,
		Logger:        logger,
		Metrics:       metrics,
	})

	server := api.NewServer(api.ServerOptions{
		Resolver:      resolver,
		Client:        client,
		Validator:     chain.NewEVMValidator(),
		ChainMetrics:  metricsSource,
		WebhookSecret: *webhookSecret,
		Logger:        logger,
	})

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	logger.Printf("Starting API server on %s (fallback=%v, ttl=%s)", *addr, *allowFallback, *cacheTTL)
	err = httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	done <- err
	cancel()

	if err != nil {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores wires the cache and the audit ledger. The cache always
// lives in PostgreSQL (or memory); the ledger moves to ClickHouse when
// a DSN is given.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.ScoreCacheStore, storage.CreditCheckStore, func(), error) {
	if useMemory {
		return memory.NewScoreCacheStore(), memory.NewCreditCheckStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	cache := pgstore.NewScoreCacheStore(pool)

	if clickhouseDSN == "" {
		return cache, pgstore.NewCreditCheckStore(pool), func() { pool.Close() }, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return cache, chstore.NewCreditCheckStore(conn), cleanup, nil
}

// parseRPCEndpoints parses "1=https://eth.example,137=https://polygon.example".
func parseRPCEndpoints(raw string) (map[int64]string, error) {
	endpoints := make(map[int64]string)
	if raw == "" {
		return endpoints, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed endpoint %q, want chainId=url", pair)
		}
		chainID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil || chainID <= 0 {
			return nil, fmt.Errorf("bad chain id in %q", pair)
		}
		endpoints[chainID] = strings.TrimSpace(parts[1])
	}
	return endpoints, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
