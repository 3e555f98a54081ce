package services

import (
	"context"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/providers"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

const maxStageWriteAttempts = 3

// FunnelStateMachine applies events to a patient's stage under a per-patient lock
type FunnelStateMachine struct {
	patients repositories.PatientRepository
	locks    providers.LockProvider
	settings LockSettings
}

// NewFunnelStateMachine creates a new state machine
func NewFunnelStateMachine(patients repositories.PatientRepository, locks providers.LockProvider, settings LockSettings) *FunnelStateMachine {
	return &FunnelStateMachine{
		patients: patients,
		locks:    locks,
		settings: settings,
	}
}

func patientLockKey(id string) string {
	return "patient:" + id
}

// Apply advances patient to the event's stage when that stage is strictly
// later, and leaves it untouched otherwise. patient.FunnelStage is updated
// to the stored outcome. A patient already at the terminal stage is left
// alone without taking the patient lock.
func (m *FunnelStateMachine) Apply(ctx context.Context, patient *entities.Patient, event entities.EventType) (entities.Transition, error) {
	if patient.FunnelStage.IsTerminal() {
		return entities.NextStage(patient.FunnelStage, event), nil
	}

	release, err := acquireAll(ctx, m.locks, []string{patientLockKey(patient.ID)}, m.settings)
	if err != nil {
		return entities.Transition{}, err
	}
	defer release()

	current := patient.FunnelStage
	for attempt := 1; attempt <= maxStageWriteAttempts; attempt++ {
		transition := entities.NextStage(current, event)
		if !transition.Advanced {
			patient.FunnelStage = current
			return transition, nil
		}

		ok, err := m.patients.CompareAndSetStage(ctx, patient.ID, transition.From, transition.To)
		if err != nil {
			return entities.Transition{}, err
		}
		if ok {
			patient.FunnelStage = transition.To
			return transition, nil
		}

		// The stored stage differs from what we read; re-read and recompute.
		fresh, err := m.patients.GetByID(ctx, patient.ID)
		if err != nil {
			return entities.Transition{}, err
		}
		observability.LoggerFromContext(ctx).Debug().
			Str("patient_id", patient.ID).
			Str("expected", string(current)).
			Str("stored", string(fresh.FunnelStage)).
			Int("attempt", attempt).
			Msg("Stage changed underneath, retrying")
		current = fresh.FunnelStage
	}

	return entities.Transition{}, apperrors.NewConflictError("stage kept changing for patient "+patient.ID, nil)
}
