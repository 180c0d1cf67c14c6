package http

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	apierrors "cvscan/internal/errors"
	"cvscan/internal/middleware"
	"cvscan/internal/services"
	"cvscan/pkg/contracts/domain"
)

// MockDatasetService is a mock implementation of DatasetServiceInterface
type MockDatasetService struct {
	mock.Mock
}

func (m *MockDatasetService) SetScanRates(ctx context.Context, input string) (domain.SessionState, error) {
	args := m.Called(input)
	return args.Get(0).(domain.SessionState), args.Error(1)
}

func (m *MockDatasetService) State(ctx context.Context) domain.SessionState {
	return m.Called().Get(0).(domain.SessionState)
}

func (m *MockDatasetService) Reset(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *MockDatasetService) Upload(ctx context.Context, rate float64, filename string, r io.Reader) (domain.Dataset, error) {
	content, _ := io.ReadAll(r)
	args := m.Called(rate, filename, string(content))
	return args.Get(0).(domain.Dataset), args.Error(1)
}

func (m *MockDatasetService) Datasets(ctx context.Context) []domain.Dataset {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Dataset)
}

func (m *MockDatasetService) Remove(ctx context.Context, rate float64) error {
	return m.Called(rate).Error(0)
}

// MockAnalysisService is a mock implementation of AnalysisServiceInterface
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Curve(ctx context.Context, rate float64, view domain.CurveView) (domain.CurveSeries, error) {
	args := m.Called(rate, view)
	return args.Get(0).(domain.CurveSeries), args.Error(1)
}

func (m *MockAnalysisService) Curves(ctx context.Context, view domain.CurveView) ([]domain.CurveSeries, error) {
	args := m.Called(view)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CurveSeries), args.Error(1)
}

func (m *MockAnalysisService) Summary(ctx context.Context, rate float64) (domain.CycleSummary, error) {
	args := m.Called(rate)
	return args.Get(0).(domain.CycleSummary), args.Error(1)
}

func (m *MockAnalysisService) Fit(ctx context.Context, rate float64, degree int) (domain.HalfFits, error) {
	args := m.Called(rate, degree)
	return args.Get(0).(domain.HalfFits), args.Error(1)
}

func (m *MockAnalysisService) Report(ctx context.Context, rate float64, format string, degree int) (services.Report, error) {
	args := m.Called(rate, format, degree)
	return args.Get(0).(services.Report), args.Error(1)
}

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func (m *MockHealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func (m *MockHealthService) SystemStats(ctx context.Context) services.SystemStats {
	return m.Called().Get(0).(services.SystemStats)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDeps() (*slog.Logger, *apierrors.ErrorHandler, *middleware.ValidationMiddleware) {
	logger := testLogger()
	errorHandler := apierrors.NewErrorHandler(logger, false)
	return logger, errorHandler, middleware.NewValidationMiddleware(logger, errorHandler, 1<<20)
}

// serve mounts routes at prefix and runs one request through them.
func serve(t *testing.T, prefix string, routes chi.Router, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.Mount(prefix, routes)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
