package http

import (
	"context"
	"io"

	"cvscan/internal/services"
	"cvscan/pkg/contracts/domain"
)

// DatasetServiceInterface defines the session and upload operations
type DatasetServiceInterface interface {
	SetScanRates(ctx context.Context, input string) (domain.SessionState, error)
	State(ctx context.Context) domain.SessionState
	Reset(ctx context.Context) error

	Upload(ctx context.Context, rate float64, filename string, r io.Reader) (domain.Dataset, error)
	Datasets(ctx context.Context) []domain.Dataset
	Remove(ctx context.Context, rate float64) error
}

// AnalysisServiceInterface defines the cycle analysis operations
type AnalysisServiceInterface interface {
	Curve(ctx context.Context, rate float64, view domain.CurveView) (domain.CurveSeries, error)
	Curves(ctx context.Context, view domain.CurveView) ([]domain.CurveSeries, error)
	Summary(ctx context.Context, rate float64) (domain.CycleSummary, error)
	Fit(ctx context.Context, rate float64, degree int) (domain.HalfFits, error)
	Report(ctx context.Context, rate float64, format string, degree int) (services.Report, error)
}

// HealthServiceInterface defines the health endpoints' data source
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
	GetDetailedHealth(ctx context.Context) map[string]interface{}
	SystemStats(ctx context.Context) services.SystemStats
}

var (
	_ DatasetServiceInterface  = (*services.DatasetService)(nil)
	_ AnalysisServiceInterface = (*services.AnalysisService)(nil)
	_ HealthServiceInterface   = (*services.HealthService)(nil)
)
