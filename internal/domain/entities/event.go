package entities

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Cents is a currency amount in hundredths of the base unit
type Cents int64

// maxAmountCents bounds a single parsed amount so price minus cost stays in range
const maxAmountCents = float64(math.MaxInt64 / 2)

// CentsFromFloat converts a decimal amount to cents, rounding half away from zero
func CentsFromFloat(amount float64) Cents {
	return Cents(math.Round(amount * 100))
}

// Float returns the amount in the base unit
func (c Cents) Float() float64 {
	return float64(c) / 100
}

// ParseAmount interprets a raw JSON value as a currency amount. JSON numbers and
// numeric strings are accepted, including "300,50" and grouped forms such as
// "1.234,56" or "1,234.56". Anything else, including NaN, infinities and
// amounts too large to hold in cents, is reported as not numeric.
func ParseAmount(raw json.RawMessage) (Cents, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return parseDecimal(num.String())
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	return parseDecimal(normalizeSeparators(strings.TrimSpace(s)))
}

// normalizeSeparators rewrites a localized decimal string to use a single '.'
// as the decimal point. The right-most separator is the decimal point when
// both kinds appear; a separator that repeats is a grouping separator.
func normalizeSeparators(s string) string {
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case dot >= 0 && strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

func parseDecimal(s string) (Cents, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f*100) > maxAmountCents {
		return 0, false
	}
	return CentsFromFloat(f), true
}

// ProcedureDetails carries the financial fields of a procedimento_realizado event.
// Price and Cost are nil when the payload did not supply a numeric value.
type ProcedureDetails struct {
	ProcedureID string `json:"procedimentoId,omitempty"`
	Price       *Cents `json:"valor,omitempty"`
	Cost        *Cents `json:"custo,omitempty"`
}

// Complete reports whether both price and cost are known
func (p *ProcedureDetails) Complete() bool {
	return p != nil && p.Price != nil && p.Cost != nil
}

// FunnelEvent is an immutable record in the append-only event log
type FunnelEvent struct {
	ID             string                     `json:"id" db:"id"`
	Type           EventType                  `json:"event_type" db:"event_type"`
	PatientID      string                     `json:"patient_id" db:"patient_id"`
	OccurredAt     time.Time                  `json:"occurred_at" db:"occurred_at"`
	ReceivedAt     time.Time                  `json:"received_at" db:"received_at"`
	IdempotencyKey string                     `json:"idempotency_key,omitempty" db:"idempotency_key"`
	Procedure      *ProcedureDetails          `json:"procedure,omitempty" db:"-"`
	Attributes     map[string]json.RawMessage `json:"attributes,omitempty" db:"-"`
}

// InboundEvent is a validated webhook delivery before identity resolution
type InboundEvent struct {
	Type           EventType
	Identifiers    Identifiers
	OccurredAt     time.Time
	ReceivedAt     time.Time
	IdempotencyKey string
	Procedure      *ProcedureDetails
	Attributes     map[string]json.RawMessage
}
