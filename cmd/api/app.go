package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Sosajunior/crm-sub000/internal/adapters/cache"
	"github.com/Sosajunior/crm-sub000/internal/adapters/database"
	"github.com/Sosajunior/crm-sub000/internal/adapters/locks"
	"github.com/Sosajunior/crm-sub000/internal/application/services"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/clients/postgres"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/clients/redis"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
	"github.com/Sosajunior/crm-sub000/pkg/config"
)

const (
	lockKeyPrefix  = "funnel:lock:"
	cacheKeyPrefix = "funnel:cache:"
)

// engine is the wired runtime shared by the subcommands
type engine struct {
	cfg        *config.Config
	pg         *postgres.Client
	redis      *redis.Client
	procedures repositories.ProcedureRepository
	ingestion  *services.IngestionService
	reporting  *services.ReportingService
	business   *observability.FunnelMetrics
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.Log.Level)
	return cfg, nil
}

// newEngine connects to PostgreSQL and Redis and builds every service
func newEngine(cfg *config.Config, metrics *observability.Metrics) (*engine, error) {
	pg, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, err
	}

	rdb, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		pg.Close()
		return nil, err
	}

	loc := cfg.Funnel.Location()
	lockSettings := services.LockSettings{TTL: cfg.Funnel.LockTTL, Wait: cfg.Funnel.LockWait}
	locker := locks.NewRedisLocker(rdb, lockKeyPrefix)

	patients := database.NewPatientAdapter(pg)
	procedures := database.NewCachedProcedureAdapter(
		database.NewProcedureAdapter(pg),
		cache.NewRedisAdapter(rdb, cacheKeyPrefix),
		cfg.Funnel.ProcedureCacheTTL,
		metrics,
	)
	business := observability.NewFunnelMetrics()

	ingestion := services.NewIngestionService(
		services.NewDeliveryParser(loc, nil),
		services.NewIdentityResolver(patients, locker, lockSettings, nil),
		services.NewFunnelStateMachine(patients, locker, lockSettings),
		services.NewMetricsAggregator(loc),
		services.NewFinancialEngine(procedures),
		database.NewEventAdapter(pg, metrics),
		cfg.Funnel.StorageTimeout,
		business,
	)

	log.Info().
		Str("timezone", loc.String()).
		Dur("storage_timeout", cfg.Funnel.StorageTimeout).
		Dur("lock_ttl", cfg.Funnel.LockTTL).
		Msg("Funnel engine initialized")

	return &engine{
		cfg:        cfg,
		pg:         pg,
		redis:      rdb,
		procedures: procedures,
		ingestion:  ingestion,
		reporting:  newReporting(cfg, pg, metrics),
		business:   business,
	}, nil
}

func newReporting(cfg *config.Config, pg *postgres.Client, metrics *observability.Metrics) *services.ReportingService {
	return services.NewReportingService(
		database.NewCounterAdapter(pg, metrics),
		cfg.Funnel.Location(),
		nil,
		cfg.Funnel.MaxReportRangeDays,
		cfg.Funnel.StorageTimeout,
	)
}

func (e *engine) Close() {
	if err := e.redis.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Redis client")
	}
	if err := e.pg.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing PostgreSQL client")
	}
}
