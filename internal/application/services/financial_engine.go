package services

import (
	"context"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
)

// FinancialAmounts is the resolved price and cost of a performed procedure
type FinancialAmounts struct {
	Price entities.Cents
	Cost  entities.Cents
}

// Profit returns price minus cost, which may be negative
func (f FinancialAmounts) Profit() entities.Cents {
	return f.Price - f.Cost
}

// FinancialEngine derives revenue, cost and profit deltas from procedimento_realizado events
type FinancialEngine struct {
	procedures repositories.ProcedureRepository
}

// NewFinancialEngine creates a financial engine. procedures may be nil, which
// disables catalog defaults.
func NewFinancialEngine(procedures repositories.ProcedureRepository) *FinancialEngine {
	return &FinancialEngine{procedures: procedures}
}

// Resolve returns the amounts to book and whether both are known. A missing
// price or cost is taken from the catalog entry named by the event; catalog
// failures are logged and leave the amount missing.
func (e *FinancialEngine) Resolve(ctx context.Context, details *entities.ProcedureDetails) (FinancialAmounts, bool) {
	if details == nil {
		return FinancialAmounts{}, false
	}

	price, cost := details.Price, details.Cost
	if !details.Complete() && details.ProcedureID != "" && e.procedures != nil {
		procedure, err := e.procedures.GetByID(ctx, details.ProcedureID)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("procedure_id", details.ProcedureID).
				Msg("Procedure catalog lookup failed")
		} else {
			if price == nil {
				price = &procedure.DefaultPrice
			}
			if cost == nil {
				cost = &procedure.DefaultCost
			}
		}
	}

	if price == nil || cost == nil {
		return FinancialAmounts{}, false
	}
	return FinancialAmounts{Price: *price, Cost: *cost}, true
}

// Increments adds faturamento, gastos and lucro to every bucket
func (e *FinancialEngine) Increments(amounts FinancialAmounts, buckets []entities.BucketRef) []entities.CounterIncrement {
	out := make([]entities.CounterIncrement, 0, len(buckets)*3)
	for _, bucket := range buckets {
		out = append(out,
			entities.CounterIncrement{Bucket: bucket, Name: entities.CounterFaturamento, Delta: int64(amounts.Price)},
			entities.CounterIncrement{Bucket: bucket, Name: entities.CounterGastos, Delta: int64(amounts.Cost)},
			entities.CounterIncrement{Bucket: bucket, Name: entities.CounterLucro, Delta: int64(amounts.Profit())},
		)
	}
	return out
}
