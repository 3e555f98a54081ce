package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

// Period selectors accepted by the reporting path
const (
	PeriodToday  = "today"
	PeriodWeek   = "week"
	PeriodMonth  = "month"
	PeriodCustom = "custom"
)

const dateLayout = "2006-01-02"

// ReportQuery is a dashboard metrics request. StartDate and EndDate, when
// both set, override Period.
type ReportQuery struct {
	Period    string
	StartDate string
	EndDate   string
}

// ReportWindow is the resolved set of buckets a report sums
type ReportWindow struct {
	Period     string
	BucketType entities.BucketType
	Keys       []string
	Start      time.Time
	End        time.Time
}

// ReportingService answers dashboard metrics queries. It never mutates state
// and takes no locks.
type ReportingService struct {
	counters       repositories.CounterRepository
	location       *time.Location
	now            Clock
	maxRangeDays   int
	storageTimeout time.Duration
}

// NewReportingService creates a reporting service. Counter loads are bounded
// by storageTimeout, or DefaultStorageTimeout when it is not positive.
func NewReportingService(counters repositories.CounterRepository, loc *time.Location, now Clock, maxRangeDays int, storageTimeout time.Duration) *ReportingService {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if maxRangeDays <= 0 {
		maxRangeDays = 366
	}
	if storageTimeout <= 0 {
		storageTimeout = DefaultStorageTimeout
	}
	return &ReportingService{
		counters:       counters,
		location:       loc,
		now:            now,
		maxRangeDays:   maxRangeDays,
		storageTimeout: storageTimeout,
	}
}

// Report resolves the window, loads its buckets and derives the dashboard metrics
func (s *ReportingService) Report(ctx context.Context, q ReportQuery) (*entities.MetricsReport, error) {
	ctx, span := observability.StartSpan(ctx, "ReportingService.Report")
	defer span.End()

	window, err := s.ResolveWindow(q)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("period", q.Period).
			Str("start_date", q.StartDate).
			Str("end_date", q.EndDate).
			Str("fallback", window.Period).
			Msg("Invalid report selector")
	}

	rows, err := s.load(ctx, window)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	return BuildReport(window, entities.CounterSetFromRows(rows)), nil
}

func (s *ReportingService) load(ctx context.Context, window ReportWindow) ([]entities.CounterRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	type loaded struct {
		rows []entities.CounterRow
		err  error
	}
	done := make(chan loaded, 1)
	go func() {
		rows, err := s.counters.Load(ctx, window.BucketType, window.Keys)
		done <- loaded{rows: rows, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() != nil && !apperrors.IsType(res.err, apperrors.ErrorTypeTimeout) {
			return nil, apperrors.NewTimeoutError("counter load deadline exceeded", res.err)
		}
		return res.rows, res.err
	case <-ctx.Done():
		return nil, apperrors.NewTimeoutError("counter load deadline exceeded", ctx.Err())
	}
}

// ResolveWindow maps a query onto buckets. An unusable selector still yields a
// usable window (the period, then today) together with an INVALID_PERIOD error
// describing what was ignored.
func (s *ReportingService) ResolveWindow(q ReportQuery) (ReportWindow, error) {
	today := entities.StartOfDay(s.now().In(s.location))

	var invalid error
	if q.StartDate != "" || q.EndDate != "" {
		window, err := s.customWindow(q.StartDate, q.EndDate)
		if err == nil {
			return window, nil
		}
		invalid = err
	}

	switch q.Period {
	case PeriodWeek:
		start := entities.StartOfISOWeek(today)
		return ReportWindow{
			Period:     PeriodWeek,
			BucketType: entities.BucketWeek,
			Keys:       []string{entities.WeekKey(today)},
			Start:      start,
			End:        start.AddDate(0, 0, 6),
		}, invalid
	case PeriodMonth:
		start := entities.StartOfMonth(today)
		return ReportWindow{
			Period:     PeriodMonth,
			BucketType: entities.BucketMonth,
			Keys:       []string{entities.MonthKey(today)},
			Start:      start,
			End:        start.AddDate(0, 1, -1),
		}, invalid
	case PeriodToday, "":
	default:
		if invalid == nil {
			invalid = apperrors.NewInvalidPeriodError(fmt.Sprintf("unknown period %q, using today", q.Period))
		}
	}

	return ReportWindow{
		Period:     PeriodToday,
		BucketType: entities.BucketDay,
		Keys:       []string{entities.DayKey(today)},
		Start:      today,
		End:        today,
	}, invalid
}

func (s *ReportingService) customWindow(startDate, endDate string) (ReportWindow, error) {
	if startDate == "" || endDate == "" {
		return ReportWindow{}, apperrors.NewInvalidPeriodError("startDate and endDate must be given together")
	}

	start, err := s.parseDate(startDate)
	if err != nil {
		return ReportWindow{}, apperrors.NewInvalidPeriodError(fmt.Sprintf("invalid startDate %q", startDate))
	}
	end, err := s.parseDate(endDate)
	if err != nil {
		return ReportWindow{}, apperrors.NewInvalidPeriodError(fmt.Sprintf("invalid endDate %q", endDate))
	}
	if end.Before(start) {
		return ReportWindow{}, apperrors.NewInvalidPeriodError("endDate is before startDate")
	}

	var keys []string
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if len(keys) == s.maxRangeDays {
			return ReportWindow{}, apperrors.NewInvalidPeriodError(fmt.Sprintf("range exceeds %d days", s.maxRangeDays))
		}
		keys = append(keys, entities.DayKey(day))
	}

	return ReportWindow{
		Period:     PeriodCustom,
		BucketType: entities.BucketDay,
		Keys:       keys,
		Start:      start,
		End:        end,
	}, nil
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 date-time, returning local midnight
func (s *ReportingService) parseDate(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, value, s.location); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return entities.StartOfDay(t.In(s.location)), nil
}

// BuildReport derives the dashboard view of a counter set. It is a pure
// function of its inputs.
func BuildReport(window ReportWindow, set entities.CounterSet) *entities.MetricsReport {
	return &entities.MetricsReport{
		Period:    window.Period,
		StartDate: window.Start.Format(dateLayout),
		EndDate:   window.End.Format(dateLayout),
		Metrics: entities.ReportCounters{
			AtendimentosIniciados:      set.AtendimentosIniciados,
			DuvidasSanadas:             set.DuvidasSanadas,
			ProcedimentosOferecidos:    set.ProcedimentosOferecidos,
			AgendamentosRealizados:     set.AgendamentosRealizados,
			AgendamentosConfirmados:    set.AgendamentosConfirmados,
			ComparecimentosConfirmados: set.ComparecimentosConfirmados,
			ProcedimentosRealizados:    set.ProcedimentosRealizados,
			Faturamento:                set.Faturamento.Float(),
			Gastos:                     set.Gastos.Float(),
			Lucro:                      set.Lucro.Float(),
		},
		ConversionRates:  ConversionRatesFor(set),
		FinancialMetrics: FinancialMetricsFor(set),
	}
}

// ConversionRatesFor computes each stage-pair rate as a percentage with one decimal
func ConversionRatesFor(set entities.CounterSet) entities.ConversionRates {
	return entities.ConversionRates{
		AtendimentoParaDuvida:          ConversionRate(set.DuvidasSanadas, set.AtendimentosIniciados),
		DuvidaParaOferta:               ConversionRate(set.ProcedimentosOferecidos, set.DuvidasSanadas),
		OfertaParaAgendamento:          ConversionRate(set.AgendamentosRealizados, set.ProcedimentosOferecidos),
		AgendamentoParaConfirmacao:     ConversionRate(set.AgendamentosConfirmados, set.AgendamentosRealizados),
		ConfirmacaoParaComparecimento:  ConversionRate(set.ComparecimentosConfirmados, set.AgendamentosConfirmados),
		ComparecimentoParaProcedimento: ConversionRate(set.ProcedimentosRealizados, set.ComparecimentosConfirmados),
	}
}

// ConversionRate returns current/previous*100 rounded to one decimal, 0 when previous is 0
func ConversionRate(current, previous int64) float64 {
	return roundTo(safeDiv(float64(current), float64(previous))*100, 1)
}

// FinancialMetricsFor computes roi, average ticket, average cost and margin
func FinancialMetricsFor(set entities.CounterSet) entities.FinancialMetrics {
	procedures := float64(set.ProcedimentosRealizados)
	return entities.FinancialMetrics{
		ROI:         roundTo(safeDiv(float64(set.Lucro), float64(set.Gastos))*100, 2),
		TicketMedio: roundTo(safeDiv(set.Faturamento.Float(), procedures), 2),
		CustoMedio:  roundTo(safeDiv(set.Gastos.Float(), procedures), 2),
		MargemLucro: roundTo(safeDiv(float64(set.Lucro), float64(set.Faturamento))*100, 2),
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	q := a / b
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

func roundTo(f float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	r := math.Round(f*p) / p
	if r == 0 {
		return 0 // no negative zero on the wire
	}
	return r
}
