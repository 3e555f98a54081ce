package entities

// CounterName names a counter row inside a bucket
type CounterName string

const (
	CounterAtendimentosIniciados      CounterName = "atendimentosIniciados"
	CounterDuvidasSanadas             CounterName = "duvidasSanadas"
	CounterProcedimentosOferecidos    CounterName = "procedimentosOferecidos"
	CounterAgendamentosRealizados     CounterName = "agendamentosRealizados"
	CounterAgendamentosConfirmados    CounterName = "agendamentosConfirmados"
	CounterComparecimentosConfirmados CounterName = "comparecimentosConfirmados"
	CounterProcedimentosRealizados    CounterName = "procedimentosRealizados"

	// Financial totals, stored in cents
	CounterFaturamento CounterName = "faturamento"
	CounterGastos      CounterName = "gastos"
	CounterLucro       CounterName = "lucro"
)

// StageCounters lists the stage counters in funnel order
var StageCounters = []CounterName{
	CounterAtendimentosIniciados,
	CounterDuvidasSanadas,
	CounterProcedimentosOferecidos,
	CounterAgendamentosRealizados,
	CounterAgendamentosConfirmados,
	CounterComparecimentosConfirmados,
	CounterProcedimentosRealizados,
}

// CounterIncrement adds Delta to one counter in one bucket
type CounterIncrement struct {
	Bucket BucketRef
	Name   CounterName
	Delta  int64
}

// CounterRow is a stored counter value
type CounterRow struct {
	BucketType BucketType  `db:"bucket_type"`
	BucketKey  string      `db:"bucket_key"`
	Name       CounterName `db:"counter_name"`
	Value      int64       `db:"value"`
}

// CounterSet holds the counters and financial totals of one or more buckets
type CounterSet struct {
	AtendimentosIniciados      int64
	DuvidasSanadas             int64
	ProcedimentosOferecidos    int64
	AgendamentosRealizados     int64
	AgendamentosConfirmados    int64
	ComparecimentosConfirmados int64
	ProcedimentosRealizados    int64
	Faturamento                Cents
	Gastos                     Cents
	Lucro                      Cents
}

// Add folds value into the named counter. Unknown names are ignored.
func (s *CounterSet) Add(name CounterName, value int64) {
	switch name {
	case CounterAtendimentosIniciados:
		s.AtendimentosIniciados += value
	case CounterDuvidasSanadas:
		s.DuvidasSanadas += value
	case CounterProcedimentosOferecidos:
		s.ProcedimentosOferecidos += value
	case CounterAgendamentosRealizados:
		s.AgendamentosRealizados += value
	case CounterAgendamentosConfirmados:
		s.AgendamentosConfirmados += value
	case CounterComparecimentosConfirmados:
		s.ComparecimentosConfirmados += value
	case CounterProcedimentosRealizados:
		s.ProcedimentosRealizados += value
	case CounterFaturamento:
		s.Faturamento += Cents(value)
	case CounterGastos:
		s.Gastos += Cents(value)
	case CounterLucro:
		s.Lucro += Cents(value)
	}
}

// Stage returns the value of a stage counter
func (s CounterSet) Stage(name CounterName) int64 {
	switch name {
	case CounterAtendimentosIniciados:
		return s.AtendimentosIniciados
	case CounterDuvidasSanadas:
		return s.DuvidasSanadas
	case CounterProcedimentosOferecidos:
		return s.ProcedimentosOferecidos
	case CounterAgendamentosRealizados:
		return s.AgendamentosRealizados
	case CounterAgendamentosConfirmados:
		return s.AgendamentosConfirmados
	case CounterComparecimentosConfirmados:
		return s.ComparecimentosConfirmados
	case CounterProcedimentosRealizados:
		return s.ProcedimentosRealizados
	}
	return 0
}

// CounterSetFromRows sums stored rows into a single set
func CounterSetFromRows(rows []CounterRow) CounterSet {
	var set CounterSet
	for _, row := range rows {
		set.Add(row.Name, row.Value)
	}
	return set
}

// ReportCounters is the dashboard view of a counter set
type ReportCounters struct {
	AtendimentosIniciados      int64   `json:"atendimentosIniciados"`
	DuvidasSanadas             int64   `json:"duvidasSanadas"`
	ProcedimentosOferecidos    int64   `json:"procedimentosOferecidos"`
	AgendamentosRealizados     int64   `json:"agendamentosRealizados"`
	AgendamentosConfirmados    int64   `json:"agendamentosConfirmados"`
	ComparecimentosConfirmados int64   `json:"comparecimentosConfirmados"`
	ProcedimentosRealizados    int64   `json:"procedimentosRealizados"`
	Faturamento                float64 `json:"faturamento"`
	Gastos                     float64 `json:"gastos"`
	Lucro                      float64 `json:"lucro"`
}

// ConversionRates holds stage-to-stage conversion percentages
type ConversionRates struct {
	AtendimentoParaDuvida          float64 `json:"atendimentoParaDuvida"`
	DuvidaParaOferta               float64 `json:"duvidaParaOferta"`
	OfertaParaAgendamento          float64 `json:"ofertaParaAgendamento"`
	AgendamentoParaConfirmacao     float64 `json:"agendamentoParaConfirmacao"`
	ConfirmacaoParaComparecimento  float64 `json:"confirmacaoParaComparecimento"`
	ComparecimentoParaProcedimento float64 `json:"comparecimentoParaProcedimento"`
}

// FinancialMetrics holds the derived financial ratios of a period
type FinancialMetrics struct {
	ROI         float64 `json:"roi"`
	TicketMedio float64 `json:"ticketMedio"`
	CustoMedio  float64 `json:"custoMedio"`
	MargemLucro float64 `json:"margemLucro"`
}

// MetricsReport is the result of a dashboard metrics query
type MetricsReport struct {
	Period           string           `json:"period"`
	StartDate        string           `json:"startDate"`
	EndDate          string           `json:"endDate"`
	Metrics          ReportCounters   `json:"metrics"`
	ConversionRates  ConversionRates  `json:"conversionRates"`
	FinancialMetrics FinancialMetrics `json:"financialMetrics"`
}
