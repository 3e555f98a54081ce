package entities

import (
	"time"
)

// Procedure represents a clinic procedure in the catalog, with the default
// price charged and cost incurred when an event does not state them
type Procedure struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Category     string    `json:"category" db:"category"`
	DefaultPrice Cents     `json:"default_price_cents" db:"default_price_cents"`
	DefaultCost  Cents     `json:"default_cost_cents" db:"default_cost_cents"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
