package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/app"
	"github.com/kailas-cloud/arxivsearch/internal/config"
	"github.com/kailas-cloud/arxivsearch/internal/loader"
	logpkg "github.com/kailas-cloud/arxivsearch/internal/logger"
	"github.com/kailas-cloud/arxivsearch/internal/metrics"
)

var loadFlags struct {
	recreate    bool
	dataset     string
	concurrency int
	batchSize   int
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Create the index and load the dataset",
	Long: `Create the paper index and write every paper of the dataset.

When the index already exists nothing is written unless --recreate is set.
A missing local dataset is downloaded from the configured S3 bucket first.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().BoolVar(&loadFlags.recreate, "recreate", false, "Drop the existing index first")
	loadCmd.Flags().StringVar(&loadFlags.dataset, "dataset", "", "Dataset path (overrides loader.dataset_path)")
	loadCmd.Flags().IntVar(&loadFlags.concurrency, "concurrency", 0, "Concurrent write batches (overrides loader.write_concurrency)")
	loadCmd.Flags().IntVar(&loadFlags.batchSize, "batch-size", 0, "Papers per write batch (overrides loader.batch_size)")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	cfg, e, err := loadConfig()
	if err != nil {
		return err
	}
	applyLoadFlags(&cfg.Loader)

	logger, err := logpkg.NewLogger(e, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterSearchMetrics()

	ctx := cmd.Context()
	specs, err := app.ProviderSpecs(cfg.Providers)
	if err != nil {
		return err
	}

	idx, err := app.OpenIndex(ctx, cfg.Index, specs, logger)
	if err != nil {
		return err
	}
	defer idx.Close()

	src, err := datasetSource(cmd, cfg.Loader, logger)
	if err != nil {
		return err
	}

	l := loader.New(idx.Writer, src, specs, loader.Options{
		Concurrency: cfg.Loader.WriteConcurrency,
		BatchSize:   cfg.Loader.BatchSize,
		Recreate:    cfg.Loader.RecreateIndex,
	}, logger)

	sum, err := l.Load(ctx)
	if err != nil {
		logger.Error("load failed", zap.Error(err), zap.Int("papers", sum.Papers))
		return err
	}

	if !sum.IndexCreated {
		fmt.Fprintln(cmd.OutOrStdout(), "index already exists, nothing loaded (use --recreate to rebuild)")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d papers in %d batches (%s)\n",
		sum.Papers, sum.Batches, sum.Duration.Round(time.Millisecond))
	return nil
}

func applyLoadFlags(lc *config.LoaderConfig) {
	if loadFlags.recreate {
		lc.RecreateIndex = true
	}
	if loadFlags.dataset != "" {
		lc.DatasetPath = loadFlags.dataset
	}
	if loadFlags.concurrency > 0 {
		lc.WriteConcurrency = loadFlags.concurrency
	}
	if loadFlags.batchSize > 0 {
		lc.BatchSize = loadFlags.batchSize
	}
}

func datasetSource(cmd *cobra.Command, lc config.LoaderConfig, logger *zap.Logger) (*loader.FileSource, error) {
	opts := loader.S3Options{
		Bucket:    lc.S3.Bucket,
		Key:       lc.S3.Key,
		Region:    lc.S3.Region,
		Endpoint:  lc.S3.Endpoint,
		AccessKey: lc.S3.AccessKey,
		SecretKey: lc.S3.SecretKey,
	}
	if opts.Bucket == "" {
		return loader.NewFileSource(lc.DatasetPath, nil, opts, logger), nil
	}
	client, err := loader.NewS3Client(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}
	return loader.NewFileSource(lc.DatasetPath, client, opts, logger), nil
}
