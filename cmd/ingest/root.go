package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bidforecast/server/config"
	"bidforecast/server/internal/classifier"
	"bidforecast/server/internal/database"
	"bidforecast/server/internal/history"
	"bidforecast/server/internal/ingest"
)

type options struct {
	file      string
	batchSize int
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a listing export into the round history store",
		Long: `Reads a CSV export of auction listings, drops rows without a category or a
usable minimum bid, and records every remaining sighting in the history store
in close-time order so later predictions see the listing's earlier rounds.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "listing export (CSV)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "listings per batch (default BATCH_MAX_SIZE)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every dropped row")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if opts.batchSize > 0 {
		cfg.BatchProcessing.MaxBatchSize = opts.batchSize
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("failed to open listing export: %w", err)
	}
	defer f.Close()

	store, closer, err := database.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	tables, err := classifier.LoadTables(classifier.TableFilesFrom(cfg))
	if err != nil {
		return err
	}

	// Ingestion must not silently skip rounds, so store outages are never degraded here.
	merger := history.NewMerger(store, cfg.History.Timeout, false, logger)
	ingester := ingest.NewIngester(classifier.FromTables(tables), merger, cfg, logger)

	result, err := ingester.Run(ctx, f)
	fmt.Fprintf(os.Stderr, "run %s: read %d, invalid %d, merged %d, rejected %d, failed %d\n",
		result.RunID, result.Read, result.Invalid, result.Stats.Merged, result.Stats.Rejected, result.Stats.Failed)
	return err
}
