package database

import (
	"errors"

	"github.com/lib/pq"

	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = pq.ErrorCode("23505")

// uniqueConstraint returns the violated constraint name when err is a unique violation
func uniqueConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// storageError wraps a driver error, mapping unique violations to CONFLICT
func storageError(message string, err error) error {
	if constraint, ok := uniqueConstraint(err); ok {
		return apperrors.NewConflictError(message+": duplicate "+constraint, err)
	}
	return apperrors.NewPersistenceError(message, err)
}
