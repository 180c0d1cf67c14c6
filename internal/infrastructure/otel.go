package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"cvscan/internal/config"
)

// InstrumentationName identifies tracers and meters created by this module.
const InstrumentationName = "cvscan"

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// NoopProviders returns providers whose tracer and meter discard everything.
// Handy for tests and for the CLI.
func NoopProviders(logger *slog.Logger) *OTelProviders {
	if logger == nil {
		logger = slog.Default()
	}
	return &OTelProviders{
		Tracer:         tracenoop.NewTracerProvider().Tracer(InstrumentationName),
		Meter:          metricnoop.NewMeterProvider().Meter(InstrumentationName),
		PrometheusHTTP: http.NotFoundHandler(),
		Logger:         logger,
	}
}

// InitializeOTel sets up tracing and metrics according to cfg. Disabled
// signals fall back to no-op implementations so callers never nil-check.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()
	providers := NoopProviders(logger)

	providers.Logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", config.AppVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.TracesEnabled),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled))

	res := createResource(cfg)

	if cfg.TracesEnabled {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(config.AppVersion))
		otel.SetTracerProvider(tp)
	}

	if cfg.MetricsEnabled {
		registry := promclient.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(config.AppVersion))
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

// Shutdown flushes and stops the SDK providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ServiceMetrics are the instruments recorded by the HTTP layer and the
// analysis service.
type ServiceMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	AnalysesTotal    metric.Int64Counter
	AnalysisFailures metric.Int64Counter
	AnalysisDuration metric.Float64Histogram
	FitRSquared      metric.Float64Histogram

	DatasetsStored  metric.Int64Counter
	UploadBytes     metric.Int64Counter
	ReportsExported metric.Int64Counter
}

// CreateServiceMetrics registers the instruments on meter.
func CreateServiceMetrics(meter metric.Meter) (*ServiceMetrics, error) {
	var (
		m   ServiceMetrics
		err error
	)
	counter := func(name, desc string, opts ...metric.Int64CounterOption) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, append(opts, metric.WithDescription(desc))...)
		return c
	}
	histogram := func(name, desc, unit string) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
		return h
	}

	m.HTTPRequestsTotal = counter("http_requests_total", "Total number of HTTP requests")
	m.HTTPRequestDuration = histogram("http_request_duration_seconds", "HTTP request duration in seconds", "s")
	m.AnalysesTotal = counter("cv_analyses_total", "Cycle analyses performed")
	m.AnalysisFailures = counter("cv_analysis_failures_total", "Cycle analyses that failed, by error kind")
	m.AnalysisDuration = histogram("cv_analysis_duration_seconds", "Cycle analysis duration in seconds", "s")
	m.FitRSquared = histogram("cv_fit_r_squared", "Coefficient of determination of half-cycle fits", "1")
	m.DatasetsStored = counter("cv_datasets_stored_total", "Datasets stored")
	m.UploadBytes = counter("cv_upload_bytes_total", "Bytes received in uploads", metric.WithUnit("By"))
	m.ReportsExported = counter("cv_reports_exported_total", "Report files written")
	if err != nil {
		return nil, err
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordAnalysis records one analysis outcome. kind names the operation
// (curve, fit, summary); err classifies the failure when not nil.
func (m *ServiceMetrics) RecordAnalysis(ctx context.Context, kind string, scanRate float64, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("analysis.kind", kind),
		attribute.Float64("scan_rate", scanRate),
	)
	m.AnalysesTotal.Add(ctx, 1, attrs)
	m.AnalysisDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.AnalysisFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("analysis.kind", kind),
			attribute.String("error.kind", ErrorKind(err)),
		))
	}
}

// RecordDatasetStored records an accepted upload of size bytes.
func (m *ServiceMetrics) RecordDatasetStored(ctx context.Context, scanRate float64, size int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Float64("scan_rate", scanRate))
	m.DatasetsStored.Add(ctx, 1, attrs)
	m.UploadBytes.Add(ctx, size, attrs)
}

// RecordFit records the goodness of fit of one half.
func (m *ServiceMetrics) RecordFit(ctx context.Context, half string, rSquared float64) {
	if m == nil {
		return
	}
	m.FitRSquared.Record(ctx, rSquared, metric.WithAttributes(attribute.String("half", half)))
}

// RecordReport records files written by a report export.
func (m *ServiceMetrics) RecordReport(ctx context.Context, format string, files int) {
	if m == nil {
		return
	}
	m.ReportsExported.Add(ctx, int64(files), metric.WithAttributes(attribute.String("format", format)))
}

// errorKinder is implemented by errors that carry a stable classification.
type errorKinder interface {
	Kind() string
}

// ErrorKind returns a short label for err suitable as a metric attribute.
func ErrorKind(err error) string {
	var k errorKinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// createResource describes this service. It is not merged with
// resource.Default(), whose schema URL follows the SDK's semconv version.
func createResource(cfg config.TelemetryConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", uuid.NewString()),
	)
}
