package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/providers"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

// LockSettings bounds how long a lease lives and how long a caller waits for it
type LockSettings struct {
	TTL  time.Duration
	Wait time.Duration
}

// IdentityResolver maps inbound identifiers to exactly one patient record
type IdentityResolver struct {
	patients repositories.PatientRepository
	locks    providers.LockProvider
	settings LockSettings
	now      Clock
	newID    func() string
}

// NewIdentityResolver creates a new identity resolver
func NewIdentityResolver(patients repositories.PatientRepository, locks providers.LockProvider, settings LockSettings, now Clock) *IdentityResolver {
	if now == nil {
		now = time.Now
	}
	return &IdentityResolver{
		patients: patients,
		locks:    locks,
		settings: settings,
		now:      now,
		newID:    uuid.NewString,
	}
}

// WithIdentity resolves ids to a patient and runs fn while the identifier
// locks are held. Lookup-or-create and everything fn does afterwards is
// serialized against any other event carrying one of the same identifiers.
func (r *IdentityResolver) WithIdentity(ctx context.Context, ids entities.Identifiers, fn func(ctx context.Context, patient *entities.Patient, created bool) error) error {
	if ids.IsEmpty() {
		return apperrors.NewMissingIdentifierError()
	}

	release, err := acquireAll(ctx, r.locks, ids.LockKeys(), r.settings)
	if err != nil {
		return err
	}
	defer release()

	patient, created, err := r.resolve(ctx, ids)
	if err != nil {
		return err
	}
	return fn(ctx, patient, created)
}

// Resolve returns the patient for ids, creating a lead when none exists
func (r *IdentityResolver) Resolve(ctx context.Context, ids entities.Identifiers) (*entities.Patient, bool, error) {
	var (
		patient *entities.Patient
		created bool
	)
	err := r.WithIdentity(ctx, ids, func(_ context.Context, p *entities.Patient, c bool) error {
		patient, created = p, c
		return nil
	})
	return patient, created, err
}

func (r *IdentityResolver) resolve(ctx context.Context, ids entities.Identifiers) (*entities.Patient, bool, error) {
	patient, err := r.lookup(ctx, ids)
	if err != nil {
		return nil, false, err
	}
	if patient != nil {
		return patient, false, nil
	}

	patient = entities.NewLead(r.newID(), ids, r.now().UTC())
	err = r.patients.Create(ctx, patient)
	if err == nil {
		observability.LoggerFromContext(ctx).Info().
			Str("patient_id", patient.ID).
			Msg("Created lead for new identifier")
		return patient, true, nil
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeConflict) {
		return nil, false, err
	}

	// Another writer created the patient between lookup and insert, through
	// an identifier this event shares with it.
	existing, lookupErr := r.lookup(ctx, ids)
	if lookupErr != nil {
		return nil, false, lookupErr
	}
	if existing == nil {
		return nil, false, apperrors.NewPersistenceError("patient vanished after identity conflict", err)
	}
	return existing, false, nil
}

// lookup tries each identifier in priority order and returns the first match
func (r *IdentityResolver) lookup(ctx context.Context, ids entities.Identifiers) (*entities.Patient, error) {
	for _, id := range ids.Ordered() {
		patient, err := r.patients.FindByIdentifier(ctx, id)
		if err != nil {
			return nil, err
		}
		if patient != nil {
			return patient, nil
		}
	}
	return nil, nil
}

// acquireAll takes every key in order, releasing what it holds on failure.
// The returned func releases in reverse order.
func acquireAll(ctx context.Context, locks providers.LockProvider, keys []string, settings LockSettings) (func(), error) {
	held := make([]providers.Lock, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			// Release with a fresh context so a cancelled request still frees its leases
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := held[i].Release(releaseCtx); err != nil {
				observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Failed to release lock")
			}
			cancel()
		}
	}

	for _, key := range keys {
		lock, err := locks.Acquire(ctx, key, settings.TTL, settings.Wait)
		if err != nil {
			release()
			return nil, lockError(key, err)
		}
		held = append(held, lock)
	}
	return release, nil
}

func lockError(key string, err error) error {
	if errors.Is(err, providers.ErrLockNotAcquired) {
		return apperrors.NewTimeoutError("timed out waiting for lock "+key, err)
	}
	return apperrors.NewPersistenceError("failed to acquire lock "+key, err)
}
