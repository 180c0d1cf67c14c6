package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"cvscan/internal/config"
	"cvscan/internal/curvefit"
	"cvscan/internal/dataprocessing"
	"cvscan/internal/exporter"
	"cvscan/internal/infrastructure"
	ws "cvscan/internal/websocket"
	"cvscan/pkg/contracts/domain"
)

// DefaultDegree asks Fit and Report for the configured default degree.
const DefaultDegree = -1

// TableSource provides the recordings of the session.
type TableSource interface {
	Table(ctx context.Context, rate float64) (domain.Table, error)
	ScanRates() []float64
	Missing() []float64
}

// Report describes the files written by an export.
type Report struct {
	ScanRate    float64   `json:"scan_rate"`
	Format      string    `json:"format"`
	Files       []string  `json:"files"`
	GeneratedAt time.Time `json:"generated_at"`
}

// AnalysisService runs cycle extraction and curve fitting on the
// session's recordings.
type AnalysisService struct {
	source     TableSource
	cfg        config.AnalysisConfig
	reportsDir string
	tracer     trace.Tracer
	metrics    *infrastructure.ServiceMetrics
	hub        Broadcaster
	logger     *slog.Logger
}

// NewAnalysisService creates an analysis service. Reports are written
// below reportsDir. tracer, metrics and hub may be nil.
func NewAnalysisService(source TableSource, cfg config.AnalysisConfig, reportsDir string, tracer trace.Tracer, metrics *infrastructure.ServiceMetrics, hub Broadcaster, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)
	}
	if hub == nil {
		hub = nopBroadcaster{}
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	return &AnalysisService{
		source:     source,
		cfg:        cfg,
		reportsDir: reportsDir,
		tracer:     tracer,
		metrics:    metrics,
		hub:        hub,
		logger:     logger.With(slog.String("component", "analysis_service")),
	}
}

// Curve returns one view of the second cycle of rate. An empty view
// means the full cycle.
func (s *AnalysisService) Curve(ctx context.Context, rate float64, view domain.CurveView) (domain.CurveSeries, error) {
	if view == "" {
		view = domain.ViewFull
	}
	if !view.Valid() {
		return domain.CurveSeries{}, fmt.Errorf("%w: %q", ErrInvalidView, view)
	}

	var series domain.CurveSeries
	err := s.observe(ctx, "curve", rate, func(ctx context.Context) error {
		data, err := s.cycle(ctx, rate)
		if err != nil {
			return err
		}
		table := data.Cycle
		switch view {
		case domain.ViewAnode:
			table = data.Anode
		case domain.ViewCathode:
			table = data.Cathode
		}
		series = domain.CurveSeries{
			ScanRate: rate,
			View:     view,
			Label:    "Scan Rate " + config.FormatScanRate(rate),
			X:        table.Potentials(),
			Y:        table.Currents(),
		}
		return nil
	})
	return series, err
}

// Curves returns the same view for every declared rate, in declaration
// order. All recordings must be uploaded. Rates are processed in
// parallel; the first failure cancels the rest.
func (s *AnalysisService) Curves(ctx context.Context, view domain.CurveView) ([]domain.CurveSeries, error) {
	if view == "" {
		view = domain.ViewFull
	}
	if !view.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidView, view)
	}
	rates := s.source.ScanRates()
	if len(rates) == 0 {
		return nil, ErrNoScanRates
	}
	if missing := s.source.Missing(); len(missing) > 0 {
		return nil, &SessionIncompleteError{Missing: missing}
	}

	ctx, span := s.tracer.Start(ctx, "analysis.curves",
		trace.WithAttributes(
			attribute.String("curve.view", string(view)),
			attribute.Int("scan_rate.count", len(rates)),
		))
	defer span.End()

	series := make([]domain.CurveSeries, len(rates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)
	for i, rate := range rates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := s.Curve(gctx, rate, view)
			if err != nil {
				return err
			}
			series[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	return series, nil
}

// Summary describes the second cycle of rate.
func (s *AnalysisService) Summary(ctx context.Context, rate float64) (domain.CycleSummary, error) {
	var summary domain.CycleSummary
	err := s.observe(ctx, "summary", rate, func(ctx context.Context) error {
		table, err := s.source.Table(ctx, rate)
		if err != nil {
			return err
		}
		summary, err = dataprocessing.Summarize(table)
		if err != nil {
			return labelSource(err, rate)
		}
		summary.ScanRate = rate
		return nil
	})
	return summary, err
}

// Fit fits a polynomial to both halves of the second cycle of rate.
// Pass DefaultDegree for the configured degree.
func (s *AnalysisService) Fit(ctx context.Context, rate float64, degree int) (domain.HalfFits, error) {
	degree, err := s.resolveDegree(degree)
	if err != nil {
		return domain.HalfFits{}, err
	}

	var fits domain.HalfFits
	err = s.observe(ctx, "fit", rate, func(ctx context.Context) error {
		data, err := s.cycle(ctx, rate)
		if err != nil {
			return err
		}
		fits, err = s.fitHalves(ctx, rate, degree, data)
		return err
	})
	return fits, err
}

// Report exports the second cycle of rate, its halves and their fits in
// format ("csv" or "xlsx", empty means csv).
func (s *AnalysisService) Report(ctx context.Context, rate float64, format string, degree int) (Report, error) {
	degree, err := s.resolveDegree(degree)
	if err != nil {
		return Report{}, err
	}
	exp, err := exporter.New(format, s.reportsDir, s.logger)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	var report Report
	err = s.observe(ctx, "report", rate, func(ctx context.Context) error {
		table, err := s.source.Table(ctx, rate)
		if err != nil {
			return err
		}
		summary, err := dataprocessing.Summarize(table)
		if err != nil {
			return labelSource(err, rate)
		}
		summary.ScanRate = rate
		data, err := dataprocessing.GetCycleData(table)
		if err != nil {
			return labelSource(err, rate)
		}
		fits, err := s.fitHalves(ctx, rate, degree, data)
		if err != nil {
			return err
		}

		written, err := exp.Export(ctx, exporter.Report{
			ScanRate: rate,
			Cycle:    data,
			Fits:     &fits,
			Summary:  summary,
		})
		if err != nil {
			return err
		}
		report = Report{
			ScanRate:    rate,
			Format:      exp.Format(),
			Files:       written,
			GeneratedAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	s.metrics.RecordReport(ctx, report.Format, len(report.Files))
	s.hub.Broadcast(ctx, ws.EventReportExported, report)
	return report, nil
}

func (s *AnalysisService) resolveDegree(degree int) (int, error) {
	if degree == DefaultDegree {
		degree = s.cfg.DefaultDegree
	}
	if degree < 0 || degree > s.cfg.MaxDegree {
		return 0, fmt.Errorf("%w: %d (allowed 0..%d)", ErrInvalidDegree, degree, s.cfg.MaxDegree)
	}
	return degree, nil
}

func (s *AnalysisService) cycle(ctx context.Context, rate float64) (domain.CycleData, error) {
	table, err := s.source.Table(ctx, rate)
	if err != nil {
		return domain.CycleData{}, err
	}
	data, err := dataprocessing.GetCycleData(table)
	if err != nil {
		return domain.CycleData{}, labelSource(err, rate)
	}
	return data, nil
}

func (s *AnalysisService) fitHalves(ctx context.Context, rate float64, degree int, data domain.CycleData) (domain.HalfFits, error) {
	solver, err := curvefit.NewSolver(degree)
	if err != nil {
		return domain.HalfFits{}, err
	}
	fits, err := solver.ProcessHalves(data.Anode, data.Cathode)
	if err != nil {
		return domain.HalfFits{}, err
	}
	fits.ScanRate = rate
	s.metrics.RecordFit(ctx, string(domain.HalfAnode), fits.Anode.RSquared)
	s.metrics.RecordFit(ctx, string(domain.HalfCathode), fits.Cathode.RSquared)
	return fits, nil
}

// observe wraps one analysis of rate in a span, records its metrics and
// announces data failures to connected clients. Lookup failures are
// client errors and are not counted as analyses.
func (s *AnalysisService) observe(ctx context.Context, kind string, rate float64, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "analysis."+kind,
		trace.WithAttributes(attribute.Float64("scan_rate", rate)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if isLookupError(err) {
		return err
	}
	s.metrics.RecordAnalysis(ctx, kind, rate, time.Since(start), err)
	if err == nil {
		return nil
	}

	infrastructure.RecordError(ctx, err)
	errKind := infrastructure.ErrorKind(err)
	s.logger.WarnContext(ctx, "Analysis failed",
		slog.String("analysis", kind),
		slog.Float64("scan_rate", rate),
		slog.String("error_kind", errKind),
		slog.String("error", err.Error()))

	switch errKind {
	case "data_integrity", "fit", "schema":
		s.hub.Broadcast(ctx, ws.EventAnalysisFailed, map[string]interface{}{
			"scan_rate": rate,
			"analysis":  kind,
			"kind":      errKind,
			"error":     err.Error(),
		})
	}
	return err
}

func isLookupError(err error) bool {
	return errors.Is(err, ErrScanRateNotFound) || errors.Is(err, ErrDatasetMissing)
}

// labelSource names the scan rate in a data integrity error.
func labelSource(err error, rate float64) error {
	var integrity *dataprocessing.DataIntegrityError
	if errors.As(err, &integrity) {
		return integrity.WithSource("scan rate " + config.FormatScanRate(rate))
	}
	return err
}
