package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Sosajunior/crm-sub000/internal/application/services"
	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
)

// Reporter answers dashboard metrics queries
type Reporter interface {
	Report(ctx context.Context, q services.ReportQuery) (*entities.MetricsReport, error)
}

// MetricsHandler serves the dashboard metrics read
type MetricsHandler struct {
	reporter Reporter
	now      func() time.Time
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(reporter Reporter) *MetricsHandler {
	return &MetricsHandler{
		reporter: reporter,
		now:      time.Now,
	}
}

type metricsResponse struct {
	*entities.MetricsReport
	Timestamp string `json:"timestamp"`
}

// GetMetrics handles GET /metrics?period=&startDate=&endDate=
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	report, err := h.reporter.Report(r.Context(), services.ReportQuery{
		Period:    query.Get("period"),
		StartDate: query.Get("startDate"),
		EndDate:   query.Get("endDate"),
	})
	if err != nil {
		respondWithAppError(w, err, "failed to load metrics")
		return
	}

	respondWithJSON(w, http.StatusOK, metricsResponse{
		MetricsReport: report,
		Timestamp:     timestamp(h.now),
	})
}
