package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vigil/internal/ingest"
	ingestmetrics "vigil/internal/ingest/metrics"
	"vigil/internal/platform/config"
	"vigil/internal/platform/httpserver"
	"vigil/internal/platform/kafka"
	"vigil/internal/platform/logger"
	"vigil/internal/platform/postgres"
	"vigil/internal/platform/redis"
	"vigil/internal/screening/cache"
	"vigil/internal/screening/embed"
	screeningmetrics "vigil/internal/screening/metrics"
	"vigil/internal/screening/ports"
	"vigil/internal/screening/service/aggregator"
	"vigil/internal/screening/store/identifier"
	"vigil/internal/screening/store/record"
	"vigil/internal/screening/store/vector"
	"vigil/internal/search"
	httptransport "vigil/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	var (
		records     ports.RecordStore
		identifiers ports.IdentifierIndex
		vectors     ports.VectorIndex
		syncState   ports.SyncStateStore
	)
	if db != nil {
		records = record.NewPostgresStore(db)
		identifiers = identifier.NewPostgresIndex(db)
		vectors = vector.NewPostgresIndex(db, cfg.EmbedDimensions)
		syncState = vector.NewPostgresSyncState(db)
		log.Info("using postgres stores")
	} else {
		records = record.NewInMemoryStore()
		identifiers = identifier.NewInMemoryIndex()
		vectors = vector.NewInMemoryIndex()
		syncState = vector.NewInMemorySyncState()
		log.Info("using in-memory stores")
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		identifiers = identifier.NewCachedIndex(identifiers, redisClient.Client, cfg.IdentifierCacheTTL, log)
		log.Info("identifier lookup cache enabled", "ttl", cfg.IdentifierCacheTTL)
	}

	publisher, err := kafka.NewPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Error("kafka connection failed", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	embedder := embed.NewClient(cfg.EmbedHost, cfg.EmbedModel)
	if err := embedder.Health(ctx); err != nil {
		log.Warn("embedding service not reachable at startup", "host", cfg.EmbedHost, "error", err)
	}

	screening, err := aggregator.NewService(records, identifiers, vectors, embedder,
		aggregator.WithLogger(log),
		aggregator.WithMetrics(screeningmetrics.New()),
		aggregator.WithDefaults(cfg.TopK, cfg.ScoreThreshold),
		aggregator.WithEmbedCache(cache.NewTTL[[]float32](cfg.IdentifierCacheTTL)),
	)
	if err != nil {
		log.Error("screening service init failed", "error", err)
		os.Exit(1)
	}

	ingestOpts := []ingest.Option{
		ingest.WithLogger(log),
		ingest.WithMetrics(ingestmetrics.New()),
		ingest.WithBatchSize(cfg.BatchSize),
	}
	if publisher != nil {
		ingestOpts = append(ingestOpts, ingest.WithPublisher(publisher))
	}
	ingestSvc, err := ingest.NewService(
		ingest.NewRunStore(), records, identifiers, vectors, syncState, embedder, ingestOpts...)
	if err != nil {
		log.Error("ingest service init failed", "error", err)
		os.Exit(1)
	}

	handler := httptransport.New(screening, ingestSvc, search.NewTracker(), log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler, log))

	log.Info("starting vigil", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
