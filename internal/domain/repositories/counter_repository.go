package repositories

import (
	"context"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
)

// CounterRepository defines read access to the period-scoped counters
type CounterRepository interface {
	// Load returns the stored rows of the given buckets. Buckets without any
	// row yield nothing, which reads as all counters at zero.
	Load(ctx context.Context, bucketType entities.BucketType, keys []string) ([]entities.CounterRow, error)
}
