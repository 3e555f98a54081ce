package repositories

import (
	"context"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
)

// EventRepository defines the append-only funnel event log
type EventRepository interface {
	// Append stores the event and applies the counter increments in a single
	// transaction. A repeated idempotency key is reported as a CONFLICT AppError
	// and nothing is written.
	Append(ctx context.Context, event *entities.FunnelEvent, increments []entities.CounterIncrement) error

	// ExistsByIdempotencyKey reports whether an event with the key was already recorded
	ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error)
}
