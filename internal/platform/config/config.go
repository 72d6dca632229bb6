package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration for the screening service.
type Server struct {
	Addr string

	// PostgresURL enables the Postgres-backed stores when set; the service
	// falls back to in-memory stores otherwise (development mode).
	PostgresURL string

	// RedisURL enables the identifier lookup cache when set.
	RedisURL string

	// KafkaBrokers enables the reindex work-item publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// EmbedHost and EmbedModel configure the embedding collaborator.
	// EmbedDimensions must match the model's output width; the pgvector
	// column is typed with it.
	EmbedHost       string
	EmbedModel      string
	EmbedDimensions int

	// Screening knobs.
	TopK           int
	ScoreThreshold float64

	// Ingestion knobs.
	BatchSize int

	IdentifierCacheTTL time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:               envOr("VIGIL_ADDR", ":8080"),
		PostgresURL:        os.Getenv("VIGIL_POSTGRES_URL"),
		RedisURL:           os.Getenv("VIGIL_REDIS_URL"),
		KafkaTopic:         envOr("VIGIL_KAFKA_TOPIC", "vigil.reindex"),
		EmbedHost:          envOr("VIGIL_EMBED_HOST", "http://localhost:11434"),
		EmbedModel:         envOr("VIGIL_EMBED_MODEL", "nomic-embed-text"),
		EmbedDimensions:    envIntOr("VIGIL_EMBED_DIMENSIONS", 768),
		TopK:               envIntOr("VIGIL_TOP_K", 10),
		ScoreThreshold:     envFloatOr("VIGIL_SCORE_THRESHOLD", 0.6),
		BatchSize:          envIntOr("VIGIL_BATCH_SIZE", 50),
		IdentifierCacheTTL: envDurationOr("VIGIL_IDENTIFIER_CACHE_TTL", 5*time.Minute),
	}

	if brokers := os.Getenv("VIGIL_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
