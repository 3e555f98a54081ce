package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sosajunior/crm-sub000/internal/application/services"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/clients/postgres"
)

func reportCmd() *cobra.Command {
	var query services.ReportQuery

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard metrics report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			pg, err := postgres.NewClient(&cfg.Database)
			if err != nil {
				return err
			}
			defer pg.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Funnel.StorageTimeout)
			defer cancel()

			report, err := newReporting(cfg, pg, nil).Report(ctx, query)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&query.Period, "period", services.PeriodToday, "today, week or month")
	cmd.Flags().StringVar(&query.StartDate, "start", "", "custom range start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&query.EndDate, "end", "", "custom range end date (YYYY-MM-DD)")
	return cmd
}
