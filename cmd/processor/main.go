package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"cvscan/internal/config"
	"cvscan/internal/dataprocessing"
	"cvscan/internal/infrastructure"
	"cvscan/internal/services"
	"cvscan/internal/validation"
	"cvscan/pkg/contracts/domain"
)

const (
	exitError     = 1
	exitIntegrity = 2
)

// options are the parsed command line flags.
type options struct {
	rates  []float64
	files  []string
	degree int
	out    string
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("processor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	rates := fs.String("rates", "", "comma separated scan rates, e.g. 5,10,20")
	files := fs.String("files", "", "comma separated recordings (.xlsx or .csv), one per scan rate")
	degree := fs.Int("degree", services.DefaultDegree, "polynomial degree (defaults to the configured degree)")
	out := fs.String("out", "", "report directory (defaults to data/reports)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	parsed, err := services.ParseScanRates(*rates)
	if err != nil {
		return options{}, fmt.Errorf("-rates: %w", err)
	}

	var paths []string
	for _, f := range strings.Split(*files, ",") {
		if f = strings.TrimSpace(f); f != "" {
			paths = append(paths, f)
		}
	}
	if len(paths) != len(parsed) {
		return options{}, fmt.Errorf("got %d scan rates but %d files", len(parsed), len(paths))
	}

	return options{rates: parsed, files: paths, degree: *degree, out: *out}, nil
}

// recordings serves tables parsed from the command line files.
type recordings struct {
	rates  []float64
	tables map[float64]domain.Table
}

func (r *recordings) Table(_ context.Context, rate float64) (domain.Table, error) {
	table, ok := r.tables[rate]
	if !ok {
		return nil, fmt.Errorf("%w: %s", services.ErrScanRateNotFound, config.FormatScanRate(rate))
	}
	return table, nil
}

func (r *recordings) ScanRates() []float64 { return r.rates }

func (r *recordings) Missing() []float64 { return nil }

// loadRecordings parses every file concurrently, at most limit at a time.
func loadRecordings(ctx context.Context, opts options, limit int, logger *slog.Logger) (*recordings, error) {
	tables := make([]domain.Table, len(opts.files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range opts.files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			table, err := dataprocessing.ParseFile(path)
			if err != nil {
				return fmt.Errorf("scan rate %s (%s): %w", config.FormatScanRate(opts.rates[i]), filepath.Base(path), err)
			}
			logger.InfoContext(gctx, "Recording loaded",
				slog.Float64("scan_rate", opts.rates[i]),
				slog.String("file", path),
				slog.Int("rows", len(table)))
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rec := &recordings{rates: opts.rates, tables: make(map[float64]domain.Table, len(tables))}
	for i, rate := range opts.rates {
		rec.tables[rate] = tables[i]
	}
	return rec, nil
}

// run extracts, splits and fits every recording and writes one CSV report
// set per scan rate.
func run(ctx context.Context, opts options, cfg *config.Config, logger *slog.Logger) ([]services.Report, error) {
	limit := cfg.Analysis.MaxParallel
	if limit < 1 {
		limit = 1
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateRecordings(opts.files); err != nil {
		return nil, err
	}
	if err := validator.ValidateOutputDirectory(opts.out); err != nil {
		return nil, err
	}

	source, err := loadRecordings(ctx, opts, limit, logger)
	if err != nil {
		return nil, err
	}
	analysis := services.NewAnalysisService(source, cfg.Analysis, opts.out, nil, nil, nil, logger)

	reports := make([]services.Report, len(opts.rates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, rate := range opts.rates {
		g.Go(func() error {
			report, err := analysis.Report(gctx, rate, "csv", opts.degree)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func exitCode(err error) int {
	if errors.Is(err, dataprocessing.ErrDataIntegrity) {
		return exitIntegrity
	}
	return exitError
}

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "processor:", err)
		}
		os.Exit(exitError)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", slog.String("error", err.Error()))
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}

	if opts.out == "" {
		paths, err := cfg.ResolvePaths()
		if err != nil {
			logger.Error("Failed to resolve paths", slog.String("error", err.Error()))
			os.Exit(exitError)
		}
		opts.out = paths.ReportsDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Processing recordings",
		slog.Any("scan_rates", opts.rates),
		slog.Int("files", len(opts.files)),
		slog.Int("degree", opts.degree),
		slog.String("output_dir", opts.out))

	reports, err := run(ctx, opts, cfg, logger)
	if err != nil {
		logger.Error("Processing failed",
			slog.String("error", err.Error()),
			slog.String("error_kind", infrastructure.ErrorKind(err)))
		fmt.Fprintln(os.Stderr, "processor:", err)
		os.Exit(exitCode(err))
	}

	for _, report := range reports {
		for _, file := range report.Files {
			fmt.Println(file)
		}
	}
	logger.Info("Processing complete", slog.Int("reports", len(reports)))
}
