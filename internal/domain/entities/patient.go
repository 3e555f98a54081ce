package entities

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// IdentifierKind names one of the ways a patient can be recognised
type IdentifierKind string

const (
	IdentifierExternalID IdentifierKind = "external_id"
	IdentifierEmail      IdentifierKind = "email"
	IdentifierPhone      IdentifierKind = "phone"
)

// Identifiers holds the patient identifiers carried by an event
type Identifiers struct {
	ExternalID string `json:"identifier,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// NewIdentifiers builds a normalised identifier set
func NewIdentifiers(externalID, email, phone string) Identifiers {
	return Identifiers{
		ExternalID: strings.TrimSpace(externalID),
		Email:      strings.ToLower(strings.TrimSpace(email)),
		Phone:      normalizePhone(phone),
	}
}

// IsEmpty reports whether no identifier is present
func (i Identifiers) IsEmpty() bool {
	return i.ExternalID == "" && i.Email == "" && i.Phone == ""
}

// IdentifierValue is a single kind/value pair
type IdentifierValue struct {
	Kind  IdentifierKind
	Value string
}

// Ordered returns the present identifiers in lookup priority order
func (i Identifiers) Ordered() []IdentifierValue {
	out := make([]IdentifierValue, 0, 3)
	if i.ExternalID != "" {
		out = append(out, IdentifierValue{Kind: IdentifierExternalID, Value: i.ExternalID})
	}
	if i.Email != "" {
		out = append(out, IdentifierValue{Kind: IdentifierEmail, Value: i.Email})
	}
	if i.Phone != "" {
		out = append(out, IdentifierValue{Kind: IdentifierPhone, Value: i.Phone})
	}
	return out
}

// LockKeys returns one lock key per present identifier, sorted so that
// every caller acquires them in the same order
func (i Identifiers) LockKeys() []string {
	ordered := i.Ordered()
	keys := make([]string, 0, len(ordered))
	for _, id := range ordered {
		keys = append(keys, "identity:"+string(id.Kind)+":"+id.Value)
	}
	sort.Strings(keys)
	return keys
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

// Patient represents a prospective or existing clinic patient
type Patient struct {
	ID          string      `json:"id" db:"id"`
	ExternalID  *string     `json:"external_id,omitempty" db:"external_id"`
	Email       *string     `json:"email,omitempty" db:"email"`
	Phone       *string     `json:"phone,omitempty" db:"phone"`
	FunnelStage FunnelStage `json:"funnel_stage" db:"funnel_stage"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// NewLead creates a patient at the implicit lead stage
func NewLead(id string, ids Identifiers, now time.Time) *Patient {
	return &Patient{
		ID:          id,
		ExternalID:  optional(ids.ExternalID),
		Email:       optional(ids.Email),
		Phone:       optional(ids.Phone),
		FunnelStage: FunnelStageLeadCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
