package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/providers"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
)

const procedureKeyspace = "procedure"

// CachedProcedureAdapter wraps a ProcedureRepository with read-through caching
// of single catalog entries
type CachedProcedureAdapter struct {
	adapter repositories.ProcedureRepository
	cache   providers.CacheProvider
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedProcedureAdapter creates a new cached procedure adapter
func NewCachedProcedureAdapter(adapter repositories.ProcedureRepository, cache providers.CacheProvider, ttl time.Duration, metrics *observability.Metrics) repositories.ProcedureRepository {
	return &CachedProcedureAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
	}
}

func procedureCacheKey(id string) string {
	return fmt.Sprintf("%s:%s", procedureKeyspace, id)
}

// GetByID retrieves a procedure by ID with caching
func (a *CachedProcedureAdapter) GetByID(ctx context.Context, id string) (*entities.Procedure, error) {
	cacheKey := procedureCacheKey(id)

	cached, err := a.cache.Get(ctx, cacheKey)
	if err == nil {
		var procedure entities.Procedure
		if err := json.Unmarshal(cached, &procedure); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, procedureKeyspace)
			return &procedure, nil
		}
		log.Warn().Err(err).Str("procedure_id", id).Msg("Failed to unmarshal cached procedure")
	} else if !errors.Is(err, providers.ErrCacheMiss) {
		log.Warn().Err(err).Str("procedure_id", id).Msg("Procedure cache unavailable")
	}

	observability.RecordCacheMiss(ctx, a.metrics, procedureKeyspace)

	procedure, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(procedure); err == nil {
		if err := a.cache.Set(ctx, cacheKey, data, a.ttl); err != nil {
			log.Warn().Err(err).Str("procedure_id", id).Msg("Failed to cache procedure")
		}
	}

	return procedure, nil
}

// List is not cached
func (a *CachedProcedureAdapter) List(ctx context.Context, filter repositories.ProcedureFilter) ([]*entities.Procedure, error) {
	return a.adapter.List(ctx, filter)
}

// Upsert writes through and drops the cached entry
func (a *CachedProcedureAdapter) Upsert(ctx context.Context, procedure *entities.Procedure) error {
	if err := a.adapter.Upsert(ctx, procedure); err != nil {
		return err
	}
	if err := a.cache.Delete(ctx, procedureCacheKey(procedure.ID)); err != nil {
		log.Warn().Err(err).Str("procedure_id", procedure.ID).Msg("Failed to invalidate cached procedure")
	}
	return nil
}
