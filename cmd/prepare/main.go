// Command prepare runs the offline batch pass: download a country archive,
// aggregate every emissions-sources entry, and write the flat dataset CSV.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	kafkaadapter "github.com/luis-ma-m/eco-spain-mapper/internal/adapter/kafka"
	"github.com/luis-ma-m/eco-spain-mapper/internal/config"
	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
	"github.com/luis-ma-m/eco-spain-mapper/internal/ingest"
	"github.com/luis-ma-m/eco-spain-mapper/internal/observability"
)

var (
	archiveURL string
	workdir    string
	output     string
	publish    bool
)

var rootCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Build the aggregated emissions dataset from a country archive",
	Long: `prepare downloads a Climate TRACE style country archive, streams every
emissions-sources CSV inside it through the shared aggregation engine, and
writes one flat dataset CSV keyed by region, year, and sector.

A download failure is fatal. A malformed archive entry aborts only that
entry; the rest of the archive still contributes to the dataset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrepare(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&archiveURL, "archive-url", "", "URL of the country archive zip (required)")
	rootCmd.Flags().StringVar(&workdir, "workdir", os.TempDir(), "Directory for the downloaded archive")
	rootCmd.Flags().StringVar(&output, "output", "dataset.csv", "Path of the output dataset CSV")
	rootCmd.Flags().BoolVar(&publish, "publish", false, "Publish built aggregates to Kafka (requires KAFKA_BROKERS)")
	cobra.CheckErr(rootCmd.MarkFlagRequired("archive-url"))
}

func runPrepare(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	limits := ingest.Limits{
		MaxBytes:   cfg.MaxUploadBytes,
		MaxRows:    cfg.MaxRows,
		MaxColumns: cfg.MaxColumns,
	}

	buildID := uuid.NewString()
	logger.Info("batch preparation starting", "build_id", buildID, "url", archiveURL)

	fetcher := ingest.NewFetcher(cfg.FetchTimeout, logger)
	archivePath, err := fetcher.Download(ctx, archiveURL, workdir)
	if err != nil {
		return fmt.Errorf("download archive: %w", err)
	}

	builder := ingest.NewBuilder(domain.SpainAnchors(), limits, logger, metrics)
	result, err := builder.Build(ctx, archivePath)
	if err != nil {
		return fmt.Errorf("build dataset: %w", err)
	}

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	defer out.Close()

	if err := ingest.WriteDataset(out, result.Aggregates); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	metrics.DatasetsPublished.Inc()

	logger.Info("dataset written",
		"build_id", buildID,
		"path", output,
		"groups", len(result.Aggregates),
		"entries", result.Entries,
		"failed_entries", result.Failed,
		"rows", result.Stats.Rows,
		"valid", result.Stats.Valid,
		"dropped", result.Stats.Dropped(),
	)

	if publish {
		if !cfg.KafkaEnabled {
			return fmt.Errorf("--publish requires KAFKA_BROKERS")
		}
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
		defer writer.Close()
		if err := writer.PublishAggregates(ctx, buildID, result.Aggregates); err != nil {
			return fmt.Errorf("publish aggregates: %w", err)
		}
		logger.Info("aggregates published", "build_id", buildID, "topic", cfg.KafkaSinkTopic)
	}

	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "prepare:", err)
		os.Exit(1)
	}
}
