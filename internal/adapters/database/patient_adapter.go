package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/clients/postgres"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

const patientsTable = "patients"

var patientColumns = []interface{}{
	"id", "external_id", "email", "phone", "funnel_stage", "created_at", "updated_at",
}

// identifierColumns maps an identifier kind to its unique column
var identifierColumns = map[entities.IdentifierKind]string{
	entities.IdentifierExternalID: "external_id",
	entities.IdentifierEmail:      "email",
	entities.IdentifierPhone:      "phone",
}

// PatientAdapter implements PatientRepository
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) repositories.PatientRepository {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// FindByIdentifier looks a patient up by one identifier column
func (a *PatientAdapter) FindByIdentifier(ctx context.Context, id entities.IdentifierValue) (*entities.Patient, error) {
	column, ok := identifierColumns[id.Kind]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown identifier kind %q", id.Kind))
	}

	patient, err := a.getByField(ctx, column, id.Value)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, nil
	}
	return patient, err
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	return a.getByField(ctx, "id", id)
}

func (a *PatientAdapter) getByField(ctx context.Context, field, value string) (*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From(patientsTable).
		Where(goqu.Ex{field: value}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient := &entities.Patient{}
	var externalID, email, phone sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&patient.ID,
		&externalID,
		&email,
		&phone,
		&patient.FunnelStage,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with %s %s not found", field, value))
	}
	if err != nil {
		return nil, storageError("failed to get patient", err)
	}

	patient.ExternalID = nullableString(externalID)
	patient.Email = nullableString(email)
	patient.Phone = nullableString(phone)

	return patient, nil
}

// Create inserts a new patient
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	record := goqu.Record{
		"id":           patient.ID,
		"external_id":  patient.ExternalID,
		"email":        patient.Email,
		"phone":        patient.Phone,
		"funnel_stage": patient.FunnelStage,
		"created_at":   patient.CreatedAt,
		"updated_at":   patient.UpdatedAt,
	}

	query, args, err := a.db.Insert(patientsTable).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return storageError("failed to create patient", err)
	}

	return nil
}

// CompareAndSetStage updates the stage only if it still equals from
func (a *PatientAdapter) CompareAndSetStage(ctx context.Context, id string, from, to entities.FunnelStage) (bool, error) {
	query, args, err := a.db.Update(patientsTable).
		Set(goqu.Record{
			"funnel_stage": to,
			"updated_at":   time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id, "funnel_stage": from}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, storageError("failed to update patient stage", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewPersistenceError("failed to get rows affected", err)
	}

	return rowsAffected == 1, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
