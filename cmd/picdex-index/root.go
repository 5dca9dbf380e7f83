package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/app"
	"github.com/kailas-cloud/picdex/internal/config"
	logpkg "github.com/kailas-cloud/picdex/internal/logger"
	"github.com/kailas-cloud/picdex/internal/metrics"
	indexeruc "github.com/kailas-cloud/picdex/internal/usecase/indexer"
	"github.com/kailas-cloud/picdex/internal/version"
)

type options struct {
	dir     string
	exts    []string
	workers int
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "picdex-index",
		Short: "Index every image under a directory",
		Long: `Walk a directory, embed every image with a matching extension and
insert it into the configured index in batches.

Files whose content is already indexed are skipped, so an interrupted
scan can simply be started again.

Examples:
  picdex-index --dir ./images
  picdex-index --dir /data/photos --ext .jpg --ext .png --workers 8`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory to scan (default: local_search.directory)")
	cmd.Flags().StringSliceVar(&opts.exts, "ext", nil, "File extensions to include (default: local_search.extensions)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Items prepared in parallel per batch (default: index.workers)")

	return cmd
}

// scanParams is options resolved against the configuration.
type scanParams struct {
	dir       string
	exts      []string
	workers   int
	batchSize int
}

func resolve(opts options, cfg config.Config) (scanParams, error) {
	if cfg.Database.Driver != config.DriverRedis {
		return scanParams{}, fmt.Errorf("database.driver %q keeps no index to fill; use %q", cfg.Database.Driver, config.DriverRedis)
	}
	if opts.workers < 0 {
		return scanParams{}, errors.New("--workers must be positive")
	}

	p := scanParams{
		dir:       opts.dir,
		workers:   opts.workers,
		batchSize: cfg.Index.ScanBatchSize,
	}
	if p.dir == "" {
		p.dir = cfg.LocalSearch.Directory
	}
	if p.dir == "" {
		return scanParams{}, errors.New("--dir is required")
	}
	exts := opts.exts
	if len(exts) == 0 {
		exts = cfg.LocalSearch.Extensions
	}
	p.exts = make([]string, len(exts))
	for i, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.exts[i] = strings.ToLower(ext)
	}
	if p.workers == 0 {
		p.workers = cfg.Index.Workers
	}
	return p, nil
}

func runIndex(cmd *cobra.Command, opts options) error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	params, err := resolve(opts, cfg)
	if err != nil {
		return err
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIndexMetrics()

	// Interrupts stop the scan between batches; finished batches stay indexed.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connecting backend: %w", err)
	}
	defer components.Close()

	svc := indexeruc.New(components.Backend, components.Enrichers, indexeruc.Options{
		BatchSize: params.batchSize,
		Workers:   params.workers,
	}, logger)

	logger.Info("Scanning directory",
		zap.String("dir", params.dir),
		zap.Strings("extensions", params.exts),
		zap.Int("workers", params.workers),
		zap.Bool("ocr", svc.OCREnabled()),
	)

	report, err := svc.InitializeIndex(ctx, params.dir, params.exts)
	printReport(cmd, report)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("interrupted; run again to resume")
		}
		return err
	}
	return nil
}

func printReport(cmd *cobra.Command, r indexeruc.ScanReport) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Found:    %d\n", r.Found)
	_, _ = fmt.Fprintf(out, "Indexed:  %d\n", r.Indexed)
	_, _ = fmt.Fprintf(out, "Existing: %d\n", r.Existing)
	_, _ = fmt.Fprintf(out, "Failed:   %d\n", r.Failed)
}
