package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/clients/postgres"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

// CounterAdapter implements CounterRepository
type CounterAdapter struct {
	db      *sqlx.DB
	goqu    *goqu.Database
	metrics *observability.Metrics
}

// NewCounterAdapter creates a new counter adapter. metrics may be nil.
func NewCounterAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.CounterRepository {
	return &CounterAdapter{
		db:      sqlx.NewDb(client.DB(), "postgres"),
		goqu:    goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// Load returns the counter rows of the given buckets
func (a *CounterAdapter) Load(ctx context.Context, bucketType entities.BucketType, keys []string) ([]entities.CounterRow, error) {
	start := time.Now()
	rows, err := a.load(ctx, bucketType, keys)
	observability.RecordStorageMetric(ctx, a.metrics, "load_counters", time.Since(start), err)
	return rows, err
}

func (a *CounterAdapter) load(ctx context.Context, bucketType entities.BucketType, keys []string) ([]entities.CounterRow, error) {
	if len(keys) == 0 {
		return []entities.CounterRow{}, nil
	}

	query, args, err := a.goqu.Select("bucket_type", "bucket_key", "counter_name", "value").
		From(countersTable).
		Where(goqu.Ex{
			"bucket_type": bucketType,
			"bucket_key":  keys,
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows := []entities.CounterRow{}
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewPersistenceError("failed to load counters", err)
	}
	return rows, nil
}
