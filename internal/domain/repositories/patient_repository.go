package repositories

import (
	"context"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
)

// PatientRepository defines the patient lookup/create capability the engine consumes
type PatientRepository interface {
	// FindByIdentifier returns the patient holding the identifier, or nil when none does
	FindByIdentifier(ctx context.Context, id entities.IdentifierValue) (*entities.Patient, error)

	// GetByID retrieves a patient by internal ID
	GetByID(ctx context.Context, id string) (*entities.Patient, error)

	// Create inserts a new patient. A unique-constraint violation on any
	// identifier is reported as a CONFLICT AppError.
	Create(ctx context.Context, patient *entities.Patient) error

	// CompareAndSetStage moves the patient from one stage to another only if
	// the stored stage still equals from. It reports whether a row changed.
	CompareAndSetStage(ctx context.Context, id string, from, to entities.FunnelStage) (bool, error)
}
