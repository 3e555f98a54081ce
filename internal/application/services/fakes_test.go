package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/providers"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

var testLocation = time.FixedZone("BRT", -3*60*60)

// fixedClock returns a clock stuck at t
func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

var testLockSettings = LockSettings{TTL: time.Second, Wait: 200 * time.Millisecond}

// MockPatientRepository is a testify mock of PatientRepository
type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) FindByIdentifier(ctx context.Context, id entities.IdentifierValue) (*entities.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Patient), args.Error(1)
}

func (m *MockPatientRepository) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Patient), args.Error(1)
}

func (m *MockPatientRepository) Create(ctx context.Context, patient *entities.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockPatientRepository) CompareAndSetStage(ctx context.Context, id string, from, to entities.FunnelStage) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

// MockProcedureRepository is a testify mock of ProcedureRepository
type MockProcedureRepository struct {
	mock.Mock
}

func (m *MockProcedureRepository) GetByID(ctx context.Context, id string) (*entities.Procedure, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Procedure), args.Error(1)
}

func (m *MockProcedureRepository) List(ctx context.Context, filter repositories.ProcedureFilter) ([]*entities.Procedure, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*entities.Procedure), args.Error(1)
}

func (m *MockProcedureRepository) Upsert(ctx context.Context, procedure *entities.Procedure) error {
	args := m.Called(ctx, procedure)
	return args.Error(0)
}

// MockCounterRepository is a testify mock of CounterRepository
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) Load(ctx context.Context, bucketType entities.BucketType, keys []string) ([]entities.CounterRow, error) {
	args := m.Called(ctx, bucketType, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.CounterRow), args.Error(1)
}

// memoryLocks is an in-process LockProvider
type memoryLocks struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func newMemoryLocks() *memoryLocks {
	return &memoryLocks{held: map[string]chan struct{}{}}
}

func (l *memoryLocks) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (providers.Lock, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			l.held[key] = make(chan struct{})
			l.mu.Unlock()
			return &memoryLock{locks: l, key: key}, nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-timer.C:
			return nil, providers.ErrLockNotAcquired
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type memoryLock struct {
	locks *memoryLocks
	key   string
	once  sync.Once
}

func (l *memoryLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.locks.mu.Lock()
		defer l.locks.mu.Unlock()
		if ch, ok := l.locks.held[l.key]; ok {
			delete(l.locks.held, l.key)
			close(ch)
		}
	})
	return nil
}

// memoryPatients is an in-process PatientRepository with unique identifiers
type memoryPatients struct {
	mu      sync.Mutex
	byID    map[string]entities.Patient
	creates int
}

func newMemoryPatients() *memoryPatients {
	return &memoryPatients{byID: map[string]entities.Patient{}}
}

func identifierOf(p entities.Patient, kind entities.IdentifierKind) string {
	var v *string
	switch kind {
	case entities.IdentifierExternalID:
		v = p.ExternalID
	case entities.IdentifierEmail:
		v = p.Email
	case entities.IdentifierPhone:
		v = p.Phone
	}
	if v == nil {
		return ""
	}
	return *v
}

func (r *memoryPatients) FindByIdentifier(ctx context.Context, id entities.IdentifierValue) (*entities.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if identifierOf(p, id.Kind) == id.Value {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryPatients) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("patient not found")
	}
	return &p, nil
}

func (r *memoryPatients) Create(ctx context.Context, patient *entities.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		for _, kind := range []entities.IdentifierKind{entities.IdentifierExternalID, entities.IdentifierEmail, entities.IdentifierPhone} {
			if v := identifierOf(*patient, kind); v != "" && identifierOf(p, kind) == v {
				return apperrors.NewConflictError("duplicate "+string(kind), nil)
			}
		}
	}
	r.byID[patient.ID] = *patient
	r.creates++
	return nil
}

func (r *memoryPatients) CompareAndSetStage(ctx context.Context, id string, from, to entities.FunnelStage) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.FunnelStage != from {
		return false, nil
	}
	p.FunnelStage = to
	r.byID[id] = p
	return true, nil
}

func (r *memoryPatients) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// memoryStore is an in-process event log and counter store
type memoryStore struct {
	mu        sync.Mutex
	events    []entities.FunnelEvent
	keys      map[string]bool
	counters  map[entities.BucketRef]map[entities.CounterName]int64
	appendErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		keys:     map[string]bool{},
		counters: map[entities.BucketRef]map[entities.CounterName]int64{},
	}
}

func (s *memoryStore) Append(ctx context.Context, event *entities.FunnelEvent, increments []entities.CounterIncrement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	if event.IdempotencyKey != "" && s.keys[event.IdempotencyKey] {
		return apperrors.NewConflictError("duplicate idempotency key", nil)
	}
	if event.IdempotencyKey != "" {
		s.keys[event.IdempotencyKey] = true
	}
	s.events = append(s.events, *event)
	for _, inc := range increments {
		if s.counters[inc.Bucket] == nil {
			s.counters[inc.Bucket] = map[entities.CounterName]int64{}
		}
		s.counters[inc.Bucket][inc.Name] += inc.Delta
	}
	return nil
}

func (s *memoryStore) ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memoryStore) Load(ctx context.Context, bucketType entities.BucketType, keys []string) ([]entities.CounterRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []entities.CounterRow
	for _, key := range keys {
		for name, value := range s.counters[entities.BucketRef{Type: bucketType, Key: key}] {
			rows = append(rows, entities.CounterRow{BucketType: bucketType, BucketKey: key, Name: name, Value: value})
		}
	}
	return rows, nil
}

func (s *memoryStore) counter(bucket entities.BucketRef, name entities.CounterName) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[bucket][name]
}

// recorderSpy counts recorder calls
type recorderSpy struct {
	mu         sync.Mutex
	ingested   map[entities.EventType]int
	duplicates int
	rejected   map[apperrors.ErrorType]int
	advanced   map[entities.FunnelStage]int
}

func newRecorderSpy() *recorderSpy {
	return &recorderSpy{
		ingested: map[entities.EventType]int{},
		rejected: map[apperrors.ErrorType]int{},
		advanced: map[entities.FunnelStage]int{},
	}
}

func (r *recorderSpy) EventIngested(e entities.EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingested[e]++
}

func (r *recorderSpy) EventDuplicate(entities.EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duplicates++
}

func (r *recorderSpy) EventRejected(reason apperrors.ErrorType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected[reason]++
}

func (r *recorderSpy) StageAdvanced(to entities.FunnelStage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanced[to]++
}

func (r *recorderSpy) ObserveIngest(time.Duration) {}

// hungCounters is a CounterRepository whose Load never returns before release
// is closed. It ignores the context unless honorContext is set.
type hungCounters struct {
	release      chan struct{}
	honorContext bool
}

func (c *hungCounters) Load(ctx context.Context, bucketType entities.BucketType, keys []string) ([]entities.CounterRow, error) {
	if c.honorContext {
		select {
		case <-ctx.Done():
			return nil, apperrors.NewPersistenceError("failed to load counters", ctx.Err())
		case <-c.release:
			return nil, nil
		}
	}
	<-c.release
	return nil, nil
}
