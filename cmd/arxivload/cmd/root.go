// Package cmd implements the arxivload command line.
package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/arxivsearch/internal/config"
)

// env selects config/<env>.yaml
var env string

var rootCmd = &cobra.Command{
	Use:   "arxivload",
	Short: "Load the arXiv papers dataset into the search index",
	Long: `arxivload creates the paper index and writes the embedded arXiv dataset into it.

Examples:
  # Create the index and load the dataset when the index is new
  arxivload load

  # Drop and rebuild the index, then load
  arxivload load --recreate

  # Print the index definition
  arxivload schema`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Config environment (defaults to $ENV or local)")
}

// loadConfig reads .env and the environment's config file.
func loadConfig() (config.Config, string, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	e := env
	if e == "" {
		e = config.GetEnv()
	}
	cfg, err := config.Load(e)
	if err != nil {
		return config.Config{}, e, fmt.Errorf("load config: %w", err)
	}
	return cfg, e, nil
}
