package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	anchorhandler "anchorgate/internal/anchor/handler"
	"anchorgate/internal/anchor/ledger"
	anchorservice "anchorgate/internal/anchor/service"
	authhandler "anchorgate/internal/auth/handler"
	"anchorgate/internal/auth/identity"
	authservice "anchorgate/internal/auth/service"
	"anchorgate/internal/auth/store/challenge"
	"anchorgate/internal/auth/store/revocation"
	"anchorgate/internal/auth/token"
	"anchorgate/internal/platform/config"
	"anchorgate/internal/platform/httpserver"
	"anchorgate/internal/platform/kafka"
	"anchorgate/internal/platform/logger"
	"anchorgate/internal/platform/metrics"
	"anchorgate/internal/platform/postgres"
	"anchorgate/internal/platform/redis"
	recordhandler "anchorgate/internal/records/handler"
	recordservice "anchorgate/internal/records/service"
	recordstore "anchorgate/internal/records/store"
	httptransport "anchorgate/internal/transport/http"
	"anchorgate/pkg/platform/circuit"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	checks := map[string]httptransport.HealthCheck{}

	records, closeRecords, err := buildRecordStore(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeRecords()

	anchorLedger, closeLedger, err := buildLedger(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeLedger()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
	}
	challenges, revocations := buildAuthStores(cfg, log, redisClient)

	tokens, err := token.New(cfg.Auth.TokenSecret,
		token.WithTTL(cfg.Auth.TokenTTL),
		token.WithStrictSignature(cfg.Auth.StrictTokenSignature),
	)
	if err != nil {
		return err
	}
	if !tokens.Strict() {
		log.Warn("token signatures are not recomputed on validation; set TOKEN_STRICT_SIGNATURE=true")
	}

	breaker := circuit.New("ledger",
		circuit.WithFailureThreshold(cfg.Anchor.BreakerThreshold),
		circuit.WithCooldown(cfg.Anchor.BreakerCooldown),
	)
	queue := anchorservice.New(records,
		anchorservice.WithLogger(log),
		anchorservice.WithMetrics(m),
		anchorservice.WithLedger(anchorLedger),
		anchorservice.WithBreaker(breaker),
		anchorservice.WithMetaURIPrefix(cfg.Anchor.MetaURIPrefix),
		anchorservice.WithFetchConcurrency(cfg.Anchor.FetchConcurrency),
	)

	auth := authservice.New(challenges, buildResolver(cfg, log), tokens,
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithServiceName(cfg.Auth.ServiceName),
		authservice.WithRevocations(revocations),
	)
	validator := authservice.NewMiddlewareAdapter(auth)

	recordSvc := recordservice.New(records, queue,
		recordservice.WithLogger(log),
		recordservice.WithMetrics(m),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Handlers: []httptransport.Registrar{
			authhandler.New(auth, log, m, cfg.Auth.SecureCookie),
			recordhandler.New(recordSvc, log, m, validator),
			anchorhandler.New(queue, log, m, validator),
		},
		Checks:   checks,
		Gatherer: reg,
		Info: httptransport.ServiceInfo{
			Name:    cfg.Auth.ServiceName,
			Version: version,
			Features: map[string]bool{
				"merkle_anchoring":       true,
				"postgres_records":       checks["postgres"] != nil,
				"kafka_ledger":           checks["kafka"] != nil,
				"redis_auth_stores":      checks["redis"] != nil,
				"strict_token_signature": tokens.Strict(),
			},
		},
	})

	srv := httpserver.New(cfg.Addr, router, log)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting anchorgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type recordBackend interface {
	recordservice.Store
	anchorservice.RecordFetcher
}

func buildRecordStore(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]httptransport.HealthCheck) (recordBackend, func(), error) {
	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if pool == nil {
		log.Info("record store: in-memory")
		return recordstore.NewInMemory(), func() {}, nil
	}
	store := recordstore.NewPostgres(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	checks["postgres"] = pool.Ping
	log.Info("record store: postgres")
	return store, pool.Close, nil
}

func buildLedger(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]httptransport.HealthCheck) (anchorservice.Ledger, func(), error) {
	client, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("ledger: mock")
		return ledger.NewMock(), func() {}, nil
	}
	if err := ledger.EnsureTopic(ctx, client.Admin, cfg.Kafka.AnchorTopic, 1, 1); err != nil {
		client.Close()
		return nil, nil, err
	}
	checks["kafka"] = client.Health
	log.Info("ledger: kafka", "topic", cfg.Kafka.AnchorTopic)
	return ledger.NewKafka(client.Client, cfg.Kafka.AnchorTopic), client.Close, nil
}

func buildAuthStores(cfg config.Server, log *slog.Logger, client *redis.Client) (authservice.ChallengeStore, authservice.RevocationList) {
	opts := []challenge.Option{challenge.WithTTL(cfg.Auth.ChallengeTTL)}
	if client == nil {
		log.Info("challenge and revocation stores: in-memory")
		return challenge.NewInMemory(opts...), revocation.NewInMemory()
	}
	log.Info("challenge and revocation stores: redis")
	return challenge.NewRedis(client.Client, opts...), revocation.NewRedis(client.Client)
}

func buildResolver(cfg config.Server, log *slog.Logger) authservice.IdentityResolver {
	if cfg.Resolver.URL != "" {
		log.Info("identity resolver: http", "url", cfg.Resolver.URL)
		return identity.NewHTTPResolver(cfg.Resolver.URL, cfg.Resolver.Timeout)
	}
	static := identity.NewStatic()
	for _, id := range cfg.Resolver.StaticIdentities {
		static.Register(&identity.Document{ID: id})
	}
	log.Info("identity resolver: static", "identities", len(cfg.Resolver.StaticIdentities))
	return static
}
