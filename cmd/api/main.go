package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "funnel-api",
		Short:        "Clinic patient funnel event engine",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(seedProceduresCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
