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

func cents(v entities.Cents) *entities.Cents { return &v }

func TestFinancialEngine_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		details *entities.ProcedureDetails
		want    FinancialAmounts
		wantOK  bool
	}{
		{name: "both amounts", details: &entities.ProcedureDetails{Price: cents(30000), Cost: cents(10000)}, want: FinancialAmounts{Price: 30000, Cost: 10000}, wantOK: true},
		{name: "zero is a value", details: &entities.ProcedureDetails{Price: cents(0), Cost: cents(0)}, want: FinancialAmounts{}, wantOK: true},
		{name: "missing cost skips", details: &entities.ProcedureDetails{Price: cents(30000)}},
		{name: "no details skips", details: nil},
	}

	engine := NewFinancialEngine(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := engine.Resolve(context.Background(), tt.details)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinancialEngine_Resolve_CatalogDefaults(t *testing.T) {
	repo := new(MockProcedureRepository)
	engine := NewFinancialEngine(repo)
	repo.On("GetByID", mock.Anything, "botox").
		Return(&entities.Procedure{ID: "botox", DefaultPrice: 120000, DefaultCost: 40000}, nil)

	got, ok := engine.Resolve(context.Background(), &entities.ProcedureDetails{
		ProcedureID: "botox",
		Price:       cents(110000),
	})

	require.True(t, ok)
	assert.Equal(t, entities.Cents(110000), got.Price, "payload price wins over catalog")
	assert.Equal(t, entities.Cents(40000), got.Cost)
}

func TestFinancialEngine_Resolve_CompleteSkipsCatalog(t *testing.T) {
	repo := new(MockProcedureRepository)
	engine := NewFinancialEngine(repo)

	_, ok := engine.Resolve(context.Background(), &entities.ProcedureDetails{
		ProcedureID: "botox",
		Price:       cents(1),
		Cost:        cents(1),
	})

	assert.True(t, ok)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestFinancialEngine_Resolve_CatalogFailureSkips(t *testing.T) {
	repo := new(MockProcedureRepository)
	engine := NewFinancialEngine(repo)
	repo.On("GetByID", mock.Anything, "ghost").
		Return(nil, apperrors.NewNotFoundError("procedure with id ghost not found"))

	_, ok := engine.Resolve(context.Background(), &entities.ProcedureDetails{ProcedureID: "ghost", Price: cents(500)})
	assert.False(t, ok)
}

func TestFinancialEngine_Increments(t *testing.T) {
	engine := NewFinancialEngine(nil)
	buckets := NewMetricsAggregator(testLocation).Buckets(receivedAt)

	t.Run("profit is price minus cost", func(t *testing.T) {
		increments := engine.Increments(FinancialAmounts{Price: 30000, Cost: 10000}, buckets)
		require.Len(t, increments, 9)

		set := entities.CounterSet{}
		for _, inc := range increments {
			if inc.Bucket == buckets[0] {
				set.Add(inc.Name, inc.Delta)
			}
		}
		assert.Equal(t, entities.Cents(30000), set.Faturamento)
		assert.Equal(t, entities.Cents(10000), set.Gastos)
		assert.Equal(t, entities.Cents(20000), set.Lucro)
		assert.Equal(t, set.Faturamento-set.Gastos, set.Lucro)
	})

	t.Run("loss is negative profit", func(t *testing.T) {
		amounts := FinancialAmounts{Price: 5000, Cost: 8000}
		assert.Equal(t, entities.Cents(-3000), amounts.Profit())
	})
}
