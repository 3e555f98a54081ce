package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/domain/repositories"
)

func seedProceduresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-procedures",
		Short: "Upsert the default procedure catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			eng, err := newEngine(cfg, nil)
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			return seedCatalog(ctx, eng.procedures, defaultCatalog(time.Now()))
		},
	}
}

// seedCatalog upserts every entry and then logs the active catalog as stored.
// Individual upsert failures are logged and counted; only the final listing
// fails the command.
func seedCatalog(ctx context.Context, procedures repositories.ProcedureRepository, catalog []*entities.Procedure) error {
	failed := 0
	for _, p := range catalog {
		if err := procedures.Upsert(ctx, p); err != nil {
			log.Error().Err(err).Str("procedure_id", p.ID).Msg("Failed to seed procedure")
			failed++
			continue
		}
		log.Info().Str("procedure_id", p.ID).Str("name", p.Name).Msg("Seeded procedure")
	}
	if failed > 0 {
		log.Warn().Int("failed", failed).Msg("Procedure catalog partially seeded")
	}

	active := true
	stored, err := procedures.List(ctx, repositories.ProcedureFilter{IsActive: &active})
	if err != nil {
		return err
	}
	for _, p := range stored {
		log.Info().
			Str("procedure_id", p.ID).
			Str("category", p.Category).
			Float64("default_price", p.DefaultPrice.Float()).
			Float64("default_cost", p.DefaultCost.Float()).
			Msg("Active procedure")
	}
	log.Info().Int("active", len(stored)).Int("seeded", len(catalog)-failed).Msg("Procedure catalog ready")
	return nil
}

// defaultCatalog is the starter catalog of a small aesthetics clinic
func defaultCatalog(now time.Time) []*entities.Procedure {
	catalog := []*entities.Procedure{
		{ID: "consulta-avaliacao", Name: "Consulta de avaliação", Category: "Consulta", DefaultPrice: 15000, DefaultCost: 2000},
		{ID: "toxina-botulinica", Name: "Toxina botulínica", Category: "Injetáveis", DefaultPrice: 120000, DefaultCost: 45000},
		{ID: "preenchimento-labial", Name: "Preenchimento labial", Category: "Injetáveis", DefaultPrice: 150000, DefaultCost: 60000},
		{ID: "limpeza-de-pele", Name: "Limpeza de pele", Category: "Estética facial", DefaultPrice: 25000, DefaultCost: 6000},
		{ID: "peeling-quimico", Name: "Peeling químico", Category: "Estética facial", DefaultPrice: 40000, DefaultCost: 12000},
		{ID: "bioestimulador", Name: "Bioestimulador de colágeno", Category: "Injetáveis", DefaultPrice: 220000, DefaultCost: 90000},
	}
	for _, p := range catalog {
		p.IsActive = true
		p.CreatedAt = now
		p.UpdatedAt = now
	}
	return catalog
}
