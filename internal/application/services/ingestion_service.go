package services

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

// DefaultStorageTimeout bounds storage calls when no timeout is configured
const DefaultStorageTimeout = 5 * time.Second

// Clock returns the current time
type Clock func() time.Time

// IngestionRecorder receives business counters for every delivery
type IngestionRecorder interface {
	EventIngested(event entities.EventType)
	EventDuplicate(event entities.EventType)
	EventRejected(reason apperrors.ErrorType)
	StageAdvanced(to entities.FunnelStage)
	ObserveIngest(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) EventIngested(entities.EventType)   {}
func (noopRecorder) EventDuplicate(entities.EventType)  {}
func (noopRecorder) EventRejected(apperrors.ErrorType)  {}
func (noopRecorder) StageAdvanced(entities.FunnelStage) {}
func (noopRecorder) ObserveIngest(time.Duration)        {}

// IngestResult describes what one delivery did
type IngestResult struct {
	EventID          string
	PatientID        string
	PatientCreated   bool
	Transition       entities.Transition
	Duplicate        bool
	FinancialApplied bool
}

// IngestionService runs a delivery through validation, identity resolution,
// the stage transition and the counter update
type IngestionService struct {
	parser         *DeliveryParser
	resolver       *IdentityResolver
	stateMachine   *FunnelStateMachine
	aggregator     *MetricsAggregator
	financial      *FinancialEngine
	events         repositories.EventRepository
	storageTimeout time.Duration
	recorder       IngestionRecorder
	newEventID     func() string
}

// NewIngestionService creates a new ingestion service. recorder may be nil.
func NewIngestionService(
	parser *DeliveryParser,
	resolver *IdentityResolver,
	stateMachine *FunnelStateMachine,
	aggregator *MetricsAggregator,
	financial *FinancialEngine,
	events repositories.EventRepository,
	storageTimeout time.Duration,
	recorder IngestionRecorder,
) *IngestionService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if storageTimeout <= 0 {
		storageTimeout = DefaultStorageTimeout
	}
	return &IngestionService{
		parser:         parser,
		resolver:       resolver,
		stateMachine:   stateMachine,
		aggregator:     aggregator,
		financial:      financial,
		events:         events,
		storageTimeout: storageTimeout,
		recorder:       recorder,
		newEventID:     func() string { return ulid.Make().String() },
	}
}

// Ingest parses and processes one webhook delivery
func (s *IngestionService) Ingest(ctx context.Context, eventType string, body []byte, idempotencyKey string) (*IngestResult, error) {
	start := time.Now()
	defer func() { s.recorder.ObserveIngest(time.Since(start)) }()

	event, err := s.parser.Parse(ctx, eventType, body, idempotencyKey)
	if err != nil {
		s.recorder.EventRejected(apperrors.TypeOf(err))
		return nil, err
	}

	result, err := s.IngestEvent(ctx, event)
	if err != nil {
		s.recorder.EventRejected(apperrors.TypeOf(err))
		return nil, err
	}
	return result, nil
}

// IngestEvent processes an already validated event. Every storage call shares
// one deadline of storageTimeout.
func (s *IngestionService) IngestEvent(ctx context.Context, event *entities.InboundEvent) (*IngestResult, error) {
	ctx, span := observability.StartSpan(ctx, "IngestionService.IngestEvent")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("funnel.event_type", string(event.Type)))

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	logger := observability.LoggerFromContext(ctx)

	if event.IdempotencyKey != "" {
		seen, err := s.events.ExistsByIdempotencyKey(ctx, event.IdempotencyKey)
		if err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		if seen {
			s.recorder.EventDuplicate(event.Type)
			logger.Info().
				Str("event_type", string(event.Type)).
				Str("idempotency_key", event.IdempotencyKey).
				Msg("Duplicate delivery ignored")
			return &IngestResult{Duplicate: true}, nil
		}
	}

	result := &IngestResult{}
	err := s.resolver.WithIdentity(ctx, event.Identifiers, func(ctx context.Context, patient *entities.Patient, created bool) error {
		result.PatientID = patient.ID
		result.PatientCreated = created

		transition, err := s.stateMachine.Apply(ctx, patient, event.Type)
		if err != nil {
			return err
		}
		result.Transition = transition

		buckets := s.aggregator.Buckets(event.OccurredAt)
		increments := s.aggregator.Increments(event.Type, event.OccurredAt)
		if event.Type.CarriesFinancials() {
			if amounts, ok := s.financial.Resolve(ctx, event.Procedure); ok {
				increments = append(increments, s.financial.Increments(amounts, buckets)...)
				result.FinancialApplied = true
			}
		}

		record := &entities.FunnelEvent{
			ID:             s.newEventID(),
			Type:           event.Type,
			PatientID:      patient.ID,
			OccurredAt:     event.OccurredAt,
			ReceivedAt:     event.ReceivedAt,
			IdempotencyKey: event.IdempotencyKey,
			Procedure:      event.Procedure,
			Attributes:     event.Attributes,
		}
		if err := s.events.Append(ctx, record, increments); err != nil {
			if event.IdempotencyKey != "" && apperrors.IsType(err, apperrors.ErrorTypeConflict) {
				result.Duplicate = true
				result.FinancialApplied = false
				return nil
			}
			return err
		}
		result.EventID = record.ID
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		logger.Error().Err(err).
			Str("event_type", string(event.Type)).
			Str("error_type", string(apperrors.TypeOf(err))).
			Msg("Failed to ingest funnel event")
		return nil, err
	}

	if result.Duplicate {
		s.recorder.EventDuplicate(event.Type)
	} else {
		s.recorder.EventIngested(event.Type)
	}
	if result.Transition.Advanced {
		s.recorder.StageAdvanced(result.Transition.To)
	}

	observability.SetSpanAttributes(span,
		attribute.String("funnel.patient_id", result.PatientID),
		attribute.Bool("funnel.stage_advanced", result.Transition.Advanced),
	)
	logger.Info().
		Str("event_id", result.EventID).
		Str("event_type", string(event.Type)).
		Str("patient_id", result.PatientID).
		Bool("patient_created", result.PatientCreated).
		Str("stage_from", string(result.Transition.From)).
		Str("stage_to", string(result.Transition.To)).
		Bool("duplicate", result.Duplicate).
		Bool("financial", result.FinancialApplied).
		Msg("Funnel event ingested")

	return result, nil
}
