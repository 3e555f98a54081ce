package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/clients/postgres"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

const proceduresTable = "procedures"

var procedureColumns = []interface{}{
	"id", "name", "category", "default_price_cents", "default_cost_cents",
	"is_active", "created_at", "updated_at",
}

// ProcedureAdapter implements ProcedureRepository
type ProcedureAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProcedureAdapter creates a new procedure adapter
func NewProcedureAdapter(client *postgres.Client) repositories.ProcedureRepository {
	return &ProcedureAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a procedure by ID
func (a *ProcedureAdapter) GetByID(ctx context.Context, id string) (*entities.Procedure, error) {
	query, args, err := a.db.Select(procedureColumns...).
		From(proceduresTable).
		Where(goqu.Ex{"id": id}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	procedure, err := scanProcedure(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("procedure with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get procedure", err)
	}
	return procedure, nil
}

// List retrieves procedures with filters
func (a *ProcedureAdapter) List(ctx context.Context, filter repositories.ProcedureFilter) ([]*entities.Procedure, error) {
	ds := a.db.Select(procedureColumns...).From(proceduresTable)

	if filter.Category != "" {
		ds = ds.Where(goqu.Ex{"category": filter.Category})
	}
	if filter.IsActive != nil {
		ds = ds.Where(goqu.Ex{"is_active": *filter.IsActive})
	}

	ds = ds.Order(goqu.I("name").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list procedures", err)
	}
	defer rows.Close()

	procedures := []*entities.Procedure{}
	for rows.Next() {
		procedure, err := scanProcedure(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("failed to scan procedure", err)
		}
		procedures = append(procedures, procedure)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("failed to iterate procedures", err)
	}

	return procedures, nil
}

// Upsert creates the catalog entry or replaces its name, category and defaults
func (a *ProcedureAdapter) Upsert(ctx context.Context, procedure *entities.Procedure) error {
	record := goqu.Record{
		"id":                  procedure.ID,
		"name":                procedure.Name,
		"category":            sql.NullString{String: procedure.Category, Valid: procedure.Category != ""},
		"default_price_cents": int64(procedure.DefaultPrice),
		"default_cost_cents":  int64(procedure.DefaultCost),
		"is_active":           procedure.IsActive,
		"created_at":          procedure.CreatedAt,
		"updated_at":          procedure.UpdatedAt,
	}

	query, args, err := a.db.Insert(proceduresTable).
		Rows(record).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"name":                goqu.L("EXCLUDED.name"),
			"category":            goqu.L("EXCLUDED.category"),
			"default_price_cents": goqu.L("EXCLUDED.default_price_cents"),
			"default_cost_cents":  goqu.L("EXCLUDED.default_cost_cents"),
			"is_active":           goqu.L("EXCLUDED.is_active"),
			"updated_at":          goqu.L("EXCLUDED.updated_at"),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewPersistenceError("failed to upsert procedure", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProcedure(row rowScanner) (*entities.Procedure, error) {
	procedure := &entities.Procedure{}
	var category sql.NullString
	var price, cost int64

	if err := row.Scan(
		&procedure.ID,
		&procedure.Name,
		&category,
		&price,
		&cost,
		&procedure.IsActive,
		&procedure.CreatedAt,
		&procedure.UpdatedAt,
	); err != nil {
		return nil, err
	}

	procedure.Category = category.String
	procedure.DefaultPrice = entities.Cents(price)
	procedure.DefaultCost = entities.Cents(cost)
	return procedure, nil
}
