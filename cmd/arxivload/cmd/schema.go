package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/arxivsearch/internal/app"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the index definition",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		specs, err := app.ProviderSpecs(cfg.Providers)
		if err != nil {
			return err
		}
		out, err := app.DescribeSchema(cfg.Index, specs)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
