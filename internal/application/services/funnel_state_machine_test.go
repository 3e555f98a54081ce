package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

func seedPatient(t *testing.T, repo *memoryPatients, id string, stage entities.FunnelStage) *entities.Patient {
	t.Helper()
	p := entities.NewLead(id, entities.NewIdentifiers(id, "", ""), resolverNow)
	p.FunnelStage = stage
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestFunnelStateMachine_Apply(t *testing.T) {
	tests := []struct {
		name         string
		current      entities.FunnelStage
		event        entities.EventType
		wantStage    entities.FunnelStage
		wantAdvanced bool
	}{
		{name: "lead to first contact", current: entities.FunnelStageLeadCreated, event: entities.EventAtendimentoIniciado, wantStage: entities.FunnelStageAtendimentoIniciado, wantAdvanced: true},
		{name: "skipping stages is allowed", current: entities.FunnelStageAtendimentoIniciado, event: entities.EventConfirmacaoAgendamento, wantStage: entities.FunnelStageAgendamentoConfirmado, wantAdvanced: true},
		{name: "attended to performed", current: entities.FunnelStageComparecimentoConfirmado, event: entities.EventProcedimentoRealizado, wantStage: entities.FunnelStageProcedimentoRealizado, wantAdvanced: true},
		{name: "late event never regresses", current: entities.FunnelStageAgendamentoConfirmado, event: entities.EventDuvidaSanada, wantStage: entities.FunnelStageAgendamentoConfirmado},
		{name: "same stage is a no-op", current: entities.FunnelStageDuvidaSanada, event: entities.EventDuvidaSanada, wantStage: entities.FunnelStageDuvidaSanada},
		{name: "terminal stays terminal", current: entities.FunnelStageProcedimentoRealizado, event: entities.EventAtendimentoIniciado, wantStage: entities.FunnelStageProcedimentoRealizado},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryPatients()
			machine := NewFunnelStateMachine(repo, newMemoryLocks(), testLockSettings)
			patient := seedPatient(t, repo, "p1", tt.current)

			transition, err := machine.Apply(context.Background(), patient, tt.event)

			require.NoError(t, err)
			assert.Equal(t, tt.wantAdvanced, transition.Advanced)
			assert.Equal(t, tt.current, transition.From)
			assert.Equal(t, tt.wantStage, patient.FunnelStage)

			stored, err := repo.GetByID(context.Background(), "p1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStage, stored.FunnelStage)
		})
	}
}

func TestFunnelStateMachine_Apply_RereadsOnStaleStage(t *testing.T) {
	repo := new(MockPatientRepository)
	machine := NewFunnelStateMachine(repo, newMemoryLocks(), testLockSettings)
	patient := &entities.Patient{ID: "p1", FunnelStage: entities.FunnelStageLeadCreated}

	repo.On("CompareAndSetStage", mock.Anything, "p1", entities.FunnelStageLeadCreated, entities.FunnelStageProcedimentoOferecido).
		Return(false, nil).Once()
	repo.On("GetByID", mock.Anything, "p1").
		Return(&entities.Patient{ID: "p1", FunnelStage: entities.FunnelStageDuvidaSanada}, nil).Once()
	repo.On("CompareAndSetStage", mock.Anything, "p1", entities.FunnelStageDuvidaSanada, entities.FunnelStageProcedimentoOferecido).
		Return(true, nil).Once()

	transition, err := machine.Apply(context.Background(), patient, entities.EventProcedimentoOferecido)

	require.NoError(t, err)
	assert.Equal(t, entities.FunnelStageDuvidaSanada, transition.From)
	assert.Equal(t, entities.FunnelStageProcedimentoOferecido, patient.FunnelStage)
	repo.AssertExpectations(t)
}

func TestFunnelStateMachine_Apply_StaleStageOvertaken(t *testing.T) {
	repo := new(MockPatientRepository)
	machine := NewFunnelStateMachine(repo, newMemoryLocks(), testLockSettings)
	patient := &entities.Patient{ID: "p1", FunnelStage: entities.FunnelStageLeadCreated}

	repo.On("CompareAndSetStage", mock.Anything, "p1", entities.FunnelStageLeadCreated, entities.FunnelStageDuvidaSanada).
		Return(false, nil).Once()
	repo.On("GetByID", mock.Anything, "p1").
		Return(&entities.Patient{ID: "p1", FunnelStage: entities.FunnelStageAgendamentoRealizado}, nil).Once()

	transition, err := machine.Apply(context.Background(), patient, entities.EventDuvidaSanada)

	require.NoError(t, err)
	assert.False(t, transition.Advanced)
	assert.Equal(t, entities.FunnelStageAgendamentoRealizado, patient.FunnelStage)
	repo.AssertExpectations(t)
}

func TestFunnelStateMachine_Apply_StorageFailure(t *testing.T) {
	repo := new(MockPatientRepository)
	machine := NewFunnelStateMachine(repo, newMemoryLocks(), testLockSettings)
	patient := &entities.Patient{ID: "p1", FunnelStage: entities.FunnelStageLeadCreated}

	repo.On("CompareAndSetStage", mock.Anything, "p1", mock.Anything, mock.Anything).
		Return(false, apperrors.NewPersistenceError("db down", assert.AnError))

	_, err := machine.Apply(context.Background(), patient, entities.EventAtendimentoIniciado)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
	assert.Equal(t, entities.FunnelStageLeadCreated, patient.FunnelStage)
}

func TestFunnelStateMachine_Apply_TerminalSkipsLock(t *testing.T) {
	repo := new(MockPatientRepository)
	locks := newMemoryLocks()
	machine := NewFunnelStateMachine(repo, locks, testLockSettings)
	patient := &entities.Patient{ID: "p1", FunnelStage: entities.FunnelStageProcedimentoRealizado}

	held, err := locks.Acquire(context.Background(), patientLockKey("p1"), testLockSettings.TTL, 0)
	require.NoError(t, err)
	defer held.Release(context.Background())

	transition, err := machine.Apply(context.Background(), patient, entities.EventDuvidaSanada)

	require.NoError(t, err)
	assert.False(t, transition.Advanced)
	assert.Equal(t, entities.FunnelStageProcedimentoRealizado, transition.To)
	repo.AssertNotCalled(t, "CompareAndSetStage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
