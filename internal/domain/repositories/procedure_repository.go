package repositories

import (
	"context"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
)

// ProcedureRepository defines the procedure catalog lookup
type ProcedureRepository interface {
	// GetByID retrieves a procedure by ID
	GetByID(ctx context.Context, id string) (*entities.Procedure, error)

	// List retrieves procedures with filters
	List(ctx context.Context, filter ProcedureFilter) ([]*entities.Procedure, error)

	// Upsert creates or replaces a catalog entry
	Upsert(ctx context.Context, procedure *entities.Procedure) error
}

// ProcedureFilter defines filters for listing procedures
type ProcedureFilter struct {
	Category string
	IsActive *bool
	Limit    int
	Offset   int
}
