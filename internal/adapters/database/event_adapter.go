package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/clients/postgres"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

const (
	eventsTable   = "funnel_events"
	countersTable = "metric_counters"
)

// EventAdapter implements EventRepository on PostgreSQL
type EventAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewEventAdapter creates a new event adapter. metrics may be nil.
func NewEventAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.EventRepository {
	return &EventAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// Append writes the event row and applies the counter upserts in one transaction
func (a *EventAdapter) Append(ctx context.Context, event *entities.FunnelEvent, increments []entities.CounterIncrement) error {
	start := time.Now()
	err := a.appendTx(ctx, event, increments)
	observability.RecordStorageMetric(ctx, a.metrics, "append_event", time.Since(start), err)
	return err
}

func (a *EventAdapter) appendTx(ctx context.Context, event *entities.FunnelEvent, increments []entities.CounterIncrement) error {
	eventQuery, eventArgs, err := a.buildEventInsert(event)
	if err != nil {
		return err
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewPersistenceError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, eventQuery, eventArgs...); err != nil {
		return storageError("failed to append funnel event", err)
	}

	if len(increments) > 0 {
		counterQuery, counterArgs, err := a.buildCounterUpsert(increments, event.ReceivedAt)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, counterQuery, counterArgs...); err != nil {
			return apperrors.NewPersistenceError("failed to increment counters", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("failed to commit funnel event", err)
	}
	return nil
}

// ExistsByIdempotencyKey reports whether the key was already recorded
func (a *EventAdapter) ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).
		From(eventsTable).
		Where(goqu.Ex{"idempotency_key": key}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, apperrors.NewPersistenceError("failed to check idempotency key", err)
	}
	return count > 0, nil
}

func (a *EventAdapter) buildEventInsert(event *entities.FunnelEvent) (string, []interface{}, error) {
	attributes := []byte("{}")
	if len(event.Attributes) > 0 {
		data, err := json.Marshal(event.Attributes)
		if err != nil {
			return "", nil, apperrors.NewValidationError("event attributes are not valid JSON")
		}
		attributes = data
	}

	var procedure sql.NullString
	if event.Procedure != nil {
		data, err := json.Marshal(event.Procedure)
		if err != nil {
			return "", nil, apperrors.NewInternalError("failed to encode procedure details", err)
		}
		procedure = sql.NullString{String: string(data), Valid: true}
	}

	record := goqu.Record{
		"id":              event.ID,
		"event_type":      event.Type,
		"patient_id":      event.PatientID,
		"occurred_at":     event.OccurredAt,
		"received_at":     event.ReceivedAt,
		"idempotency_key": sql.NullString{String: event.IdempotencyKey, Valid: event.IdempotencyKey != ""},
		"procedure":       procedure,
		"attributes":      string(attributes),
	}

	query, args, err := a.db.Insert(eventsTable).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to build insert query", err)
	}
	return query, args, nil
}

// buildCounterUpsert merges increments per counter and emits a single upsert.
// Rows are sorted so concurrent transactions lock them in the same order.
func (a *EventAdapter) buildCounterUpsert(increments []entities.CounterIncrement, now time.Time) (string, []interface{}, error) {
	type counterKey struct {
		bucketType entities.BucketType
		bucketKey  string
		name       entities.CounterName
	}

	merged := make(map[counterKey]int64, len(increments))
	for _, inc := range increments {
		merged[counterKey{inc.Bucket.Type, inc.Bucket.Key, inc.Name}] += inc.Delta
	}

	keys := make([]counterKey, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].bucketType != keys[j].bucketType {
			return keys[i].bucketType < keys[j].bucketType
		}
		if keys[i].bucketKey != keys[j].bucketKey {
			return keys[i].bucketKey < keys[j].bucketKey
		}
		return keys[i].name < keys[j].name
	})

	rows := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, goqu.Record{
			"bucket_type":  k.bucketType,
			"bucket_key":   k.bucketKey,
			"counter_name": k.name,
			"value":        merged[k],
			"updated_at":   now,
		})
	}

	query, args, err := a.db.Insert(countersTable).
		Rows(rows...).
		OnConflict(goqu.DoUpdate("bucket_type, bucket_key, counter_name", goqu.Record{
			"value":      goqu.L("metric_counters.value + EXCLUDED.value"),
			"updated_at": goqu.L("EXCLUDED.updated_at"),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to build counter upsert", err)
	}
	return query, args, nil
}
