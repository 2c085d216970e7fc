package config

import (
	"os"
	"strconv"
	"time"

	pstrings "anchorgate/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr     string
	LogLevel string

	Auth   AuthConfig
	Anchor AnchorConfig

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Resolver ResolverConfig
}

// AuthConfig configures challenges and bearer tokens.
type AuthConfig struct {
	// ServiceName prefixes the signed challenge message: "<ServiceName> Auth:<nonce>".
	ServiceName  string
	TokenSecret  string
	TokenTTL     time.Duration
	ChallengeTTL time.Duration
	// StrictTokenSignature recomputes and compares the HMAC on every
	// validation. Off keeps format+expiry-only validation for prototypes.
	StrictTokenSignature bool
	// SecureCookie marks the auth-token cookie Secure; enable behind TLS.
	SecureCookie bool
}

// AnchorConfig configures batching and the ledger fallback.
type AnchorConfig struct {
	MetaURIPrefix    string
	BreakerThreshold int
	BreakerCooldown  time.Duration
	FetchConcurrency int
}

// RedisConfig selects the Redis challenge store. Empty URL keeps challenges in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig selects the PostgreSQL record store. Empty URL keeps records in memory.
type PostgresConfig struct {
	URL      string
	MaxConns int32
}

// KafkaConfig selects the Kafka ledger. No brokers selects the local mock ledger.
type KafkaConfig struct {
	Brokers     []string
	AnchorTopic string
	ClientID    string
}

// ResolverConfig selects the HTTP identity resolver. Empty URL selects the static resolver.
type ResolverConfig struct {
	URL     string
	Timeout time.Duration
	// StaticIdentities seeds the static resolver.
	StaticIdentities []string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	tokenSecret := os.Getenv("TOKEN_SECRET")
	if tokenSecret == "" {
		// Use a default for development - should be overridden in production
		tokenSecret = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:     envString("ANCHORGATE_ADDR", ":8080"),
		LogLevel: envString("LOG_LEVEL", "info"),
		Auth: AuthConfig{
			ServiceName:          envString("SERVICE_NAME", "Anchorgate"),
			TokenSecret:          tokenSecret,
			TokenTTL:             envDuration("TOKEN_TTL", 24*time.Hour),
			ChallengeTTL:         envDuration("CHALLENGE_TTL", 5*time.Minute),
			StrictTokenSignature: envBool("TOKEN_STRICT_SIGNATURE", false),
			SecureCookie:         envBool("COOKIE_SECURE", false),
		},
		Anchor: AnchorConfig{
			MetaURIPrefix:    envString("META_URI_PREFIX", "anchorgate://records"),
			BreakerThreshold: envInt("LEDGER_BREAKER_THRESHOLD", 3),
			BreakerCooldown:  envDuration("LEDGER_BREAKER_COOLDOWN", 30*time.Second),
			FetchConcurrency: envInt("ANCHOR_FETCH_CONCURRENCY", 8),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(envInt("DATABASE_MAX_CONNS", 10)),
		},
		Kafka: KafkaConfig{
			Brokers:     envList("KAFKA_BROKERS"),
			AnchorTopic: envString("KAFKA_ANCHOR_TOPIC", "anchorgate.anchors"),
			ClientID:    envString("KAFKA_CLIENT_ID", "anchorgate"),
		},
		Resolver: ResolverConfig{
			URL:     os.Getenv("DID_RESOLVER_URL"),
			Timeout: envDuration("DID_RESOLVER_TIMEOUT", 5*time.Second),

			StaticIdentities: envList("STATIC_IDENTITIES"),
		},
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func envList(key string) []string {
	return pstrings.SplitList(os.Getenv(key), ",")
}
