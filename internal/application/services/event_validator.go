package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

// Webhook body fields the engine interprets. Everything else is opaque.
const (
	fieldIdentifier  = "identifier"
	fieldEmail       = "email"
	fieldPhone       = "phone"
	fieldTimestamp   = "timestamp"
	fieldEventID     = "eventId"
	fieldValor       = "valor"
	fieldCusto       = "custo"
	fieldProcedureID = "procedimentoId"
)

// ValidateEvent checks the event name against the supported vocabulary and
// that at least one identifier is present. It has no side effects.
func ValidateEvent(eventType string, ids entities.Identifiers) (entities.EventType, error) {
	et, ok := entities.ParseEventType(eventType)
	if !ok {
		return "", apperrors.NewUnsupportedEventError(eventType)
	}
	if ids.IsEmpty() {
		return "", apperrors.NewMissingIdentifierError()
	}
	return et, nil
}

// DeliveryParser turns a raw webhook delivery into a validated InboundEvent
type DeliveryParser struct {
	location *time.Location
	now      Clock
}

// NewDeliveryParser creates a parser that reads bare dates in loc
func NewDeliveryParser(loc *time.Location, now Clock) *DeliveryParser {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &DeliveryParser{location: loc, now: now}
}

// Parse validates eventType and body. idempotencyKey, when empty, falls back
// to the body's eventId field. An unparsable timestamp is logged and replaced
// by the receipt time.
func (p *DeliveryParser) Parse(ctx context.Context, eventType string, body []byte, idempotencyKey string) (*entities.InboundEvent, error) {
	if _, ok := entities.ParseEventType(eventType); !ok {
		return nil, apperrors.NewUnsupportedEventError(eventType)
	}

	fields := map[string]json.RawMessage{}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, apperrors.NewValidationError("request body must be a JSON object")
		}
	}

	ids := entities.NewIdentifiers(
		stringField(fields[fieldIdentifier]),
		stringField(fields[fieldEmail]),
		stringField(fields[fieldPhone]),
	)
	et, err := ValidateEvent(eventType, ids)
	if err != nil {
		return nil, err
	}

	receivedAt := p.now()
	occurredAt := receivedAt
	if raw := stringField(fields[fieldTimestamp]); raw != "" {
		if t, ok := p.parseTimestamp(raw); ok {
			occurredAt = t
		} else {
			observability.LoggerFromContext(ctx).Warn().
				Str("event_type", eventType).
				Str("timestamp", raw).
				Msg("Unparsable event timestamp, using receipt time")
		}
	}

	if idempotencyKey == "" {
		idempotencyKey = stringField(fields[fieldEventID])
	}

	event := &entities.InboundEvent{
		Type:           et,
		Identifiers:    ids,
		OccurredAt:     occurredAt,
		ReceivedAt:     receivedAt,
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
		Attributes:     fields,
	}

	if et.CarriesFinancials() {
		details := &entities.ProcedureDetails{
			ProcedureID: stringField(fields[fieldProcedureID]),
		}
		if price, ok := entities.ParseAmount(fields[fieldValor]); ok {
			details.Price = &price
		}
		if cost, ok := entities.ParseAmount(fields[fieldCusto]); ok {
			details.Cost = &cost
		}
		event.Procedure = details
	}

	return event, nil
}

// parseTimestamp accepts RFC 3339 date-times and bare dates
func (p *DeliveryParser) parseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, p.location); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", s, p.location); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// stringField reads a JSON string or number as text
func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
