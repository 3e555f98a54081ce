package services

import (
	"time"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
)

// MetricsAggregator turns an accepted event into counter increments for the
// day, week and month buckets containing it
type MetricsAggregator struct {
	location *time.Location
}

// NewMetricsAggregator creates an aggregator cutting buckets in loc
func NewMetricsAggregator(loc *time.Location) *MetricsAggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &MetricsAggregator{location: loc}
}

// Buckets returns the buckets an event at t falls into
func (a *MetricsAggregator) Buckets(t time.Time) []entities.BucketRef {
	return entities.BucketsFor(t, a.location)
}

// Increments returns one +1 for the event's stage counter in each bucket.
// Every accepted event counts, whether or not the patient's stage advanced.
func (a *MetricsAggregator) Increments(event entities.EventType, t time.Time) []entities.CounterIncrement {
	buckets := a.Buckets(t)
	out := make([]entities.CounterIncrement, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, entities.CounterIncrement{
			Bucket: bucket,
			Name:   event.Counter(),
			Delta:  1,
		})
	}
	return out
}
