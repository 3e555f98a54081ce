package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sosajunior/crm-sub000/internal/api/handlers"
	"github.com/Sosajunior/crm-sub000/internal/application/services"
	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) Report(ctx context.Context, q services.ReportQuery) (*entities.MetricsReport, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MetricsReport), args.Error(1)
}

func TestMetricsHandler_GetMetrics(t *testing.T) {
	reporter := new(MockReporter)
	handler := handlers.NewMetricsHandler(reporter)

	reporter.On("Report", mock.Anything, services.ReportQuery{Period: "custom", StartDate: "2026-10-01", EndDate: "2026-10-14"}).
		Return(&entities.MetricsReport{
			Period:    "custom",
			StartDate: "2026-10-01",
			EndDate:   "2026-10-14",
			Metrics: entities.ReportCounters{
				AtendimentosIniciados: 34,
				DuvidasSanadas:        29,
				Faturamento:           300,
			},
			ConversionRates:  entities.ConversionRates{AtendimentoParaDuvida: 85.3},
			FinancialMetrics: entities.FinancialMetrics{ROI: 200},
		}, nil)

	rec := httptest.NewRecorder()
	handler.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics?period=custom&startDate=2026-10-01&endDate=2026-10-14", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "custom", body["period"])
	assert.NotEmpty(t, body["timestamp"])

	metrics := body["metrics"].(map[string]interface{})
	assert.Equal(t, 34.0, metrics["atendimentosIniciados"])
	assert.Equal(t, 300.0, metrics["faturamento"])
	assert.Equal(t, 85.3, body["conversionRates"].(map[string]interface{})["atendimentoParaDuvida"])
	assert.Equal(t, 200.0, body["financialMetrics"].(map[string]interface{})["roi"])
}

func TestMetricsHandler_GetMetrics_StorageFailure(t *testing.T) {
	reporter := new(MockReporter)
	handler := handlers.NewMetricsHandler(reporter)

	reporter.On("Report", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewPersistenceError("failed to load counters", assert.AnError))

	rec := httptest.NewRecorder()
	handler.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "failed to load metrics", body["error"])
	assert.Contains(t, body["details"], "failed to load counters")
}

func TestMetricsHandler_GetMetrics_StorageTimeout(t *testing.T) {
	reporter := new(MockReporter)
	handler := handlers.NewMetricsHandler(reporter)

	reporter.On("Report", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewTimeoutError("counter load deadline exceeded", context.DeadlineExceeded))

	rec := httptest.NewRecorder()
	handler.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "failed to load metrics", body["error"])
}
