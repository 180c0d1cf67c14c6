package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvscan/internal/curvefit"
	"cvscan/internal/services"
	api "cvscan/pkg/contracts/api/v1"
	"cvscan/pkg/contracts/domain"
)

func sampleFits(rate float64, degree int) domain.HalfFits {
	return domain.HalfFits{
		ScanRate: rate,
		Anode:    domain.FitResult{Degree: degree, X: []float64{0, 1}, Y: []float64{0, 1}, FittedY: []float64{0, 1}, Coeffs: []float64{1, 0}, RSquared: 1},
		Cathode:  domain.FitResult{Degree: degree, X: []float64{1, 0}, Y: []float64{1, 0}, FittedY: []float64{1, 0}, Coeffs: []float64{1, 0}, RSquared: 1},
	}
}

func TestFitHandler_GetFit(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		setupMock      func(*MockAnalysisService)
		expectedStatus int
		wantAnode      bool
		wantCathode    bool
		wantOverlay    int
	}{
		{
			name:   "both halves default degree",
			target: "/api/fits/5",
			setupMock: func(m *MockAnalysisService) {
				m.On("Fit", 5.0, services.DefaultDegree).Return(sampleFits(5, 9), nil)
			},
			expectedStatus: http.StatusOK,
			wantAnode:      true,
			wantCathode:    true,
		},
		{
			name:   "anode only",
			target: "/api/fits/5?half=anode&degree=3",
			setupMock: func(m *MockAnalysisService) {
				m.On("Fit", 5.0, 3).Return(sampleFits(5, 3), nil)
			},
			expectedStatus: http.StatusOK,
			wantAnode:      true,
		},
		{
			name:   "cathode only",
			target: "/api/fits/5?half=cathode&degree=0",
			setupMock: func(m *MockAnalysisService) {
				m.On("Fit", 5.0, 0).Return(sampleFits(5, 0), nil)
			},
			expectedStatus: http.StatusOK,
			wantCathode:    true,
		},
		{
			name:   "anode overlay",
			target: "/api/fits/5?half=anode&degree=1&samples=5",
			setupMock: func(m *MockAnalysisService) {
				m.On("Fit", 5.0, 1).Return(sampleFits(5, 1), nil)
			},
			expectedStatus: http.StatusOK,
			wantAnode:      true,
			wantOverlay:    5,
		},
		{
			name:   "both overlays",
			target: "/api/fits/5?degree=1&samples=3",
			setupMock: func(m *MockAnalysisService) {
				m.On("Fit", 5.0, 1).Return(sampleFits(5, 1), nil)
			},
			expectedStatus: http.StatusOK,
			wantAnode:      true,
			wantCathode:    true,
			wantOverlay:    3,
		},
		{
			name:           "samples not a number",
			target:         "/api/fits/5?samples=many",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "single sample",
			target:         "/api/fits/5?samples=1",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "too many samples",
			target:         "/api/fits/5?samples=100000",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown half",
			target:         "/api/fits/5?half=left",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "degree not a number",
			target:         "/api/fits/5?degree=high",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative degree",
			target:         "/api/fits/5?degree=-2",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "degree above maximum",
			target: "/api/fits/5?degree=99",
			setupMock: func(m *MockAnalysisService) {
				m.On("Fit", 5.0, 99).Return(domain.HalfFits{}, fmt.Errorf("%w: 99 exceeds 25", services.ErrInvalidDegree))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "too few samples",
			target: "/api/fits/5?degree=12",
			setupMock: func(m *MockAnalysisService) {
				m.On("Fit", 5.0, 12).Return(domain.HalfFits{},
					&curvefit.FitError{Half: "cathode", Degree: 12, Samples: 4, Reason: "not enough samples"})
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAnalysisService)
			tt.setupMock(mockService)

			logger, errorHandler, validator := testDeps()
			handler := NewFitHandler(mockService, validator, logger, errorHandler)

			rec := serve(t, "/api/fits", handler.Routes(), http.MethodGet, tt.target, "", "")

			require.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			mockService.AssertExpectations(t)
			if rec.Code != http.StatusOK {
				return
			}

			var resp api.FitResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, 5.0, resp.ScanRate)
			assert.Equal(t, tt.wantAnode, resp.Anode != nil)
			assert.Equal(t, tt.wantCathode, resp.Cathode != nil)

			if tt.wantOverlay == 0 {
				assert.Nil(t, resp.AnodeOverlay)
				assert.Nil(t, resp.CathodeOverlay)
				return
			}
			for half, series := range map[domain.CurveView]*domain.CurveSeries{
				domain.ViewAnode:   resp.AnodeOverlay,
				domain.ViewCathode: resp.CathodeOverlay,
			} {
				want := (half == domain.ViewAnode && tt.wantAnode) || (half == domain.ViewCathode && tt.wantCathode)
				if !want {
					assert.Nil(t, series, half)
					continue
				}
				require.NotNil(t, series, half)
				assert.Equal(t, half, series.View)
				require.Len(t, series.X, tt.wantOverlay)
				// sampleFits is y = x over [0, 1]
				assert.InDelta(t, 0.0, series.X[0], 1e-12)
				assert.InDelta(t, 1.0, series.X[tt.wantOverlay-1], 1e-12)
				assert.InDeltaSlice(t, series.X, series.Y, 1e-12)
			}
		})
	}
}

func TestFitHandler_FitErrorCarriesHalf(t *testing.T) {
	mockService := new(MockAnalysisService)
	mockService.On("Fit", 5.0, 12).Return(domain.HalfFits{},
		&curvefit.FitError{Half: "cathode", Degree: 12, Samples: 4, Reason: "not enough samples"})

	logger, errorHandler, validator := testDeps()
	handler := NewFitHandler(mockService, validator, logger, errorHandler)

	rec := serve(t, "/api/fits", handler.Routes(), http.MethodGet, "/api/fits/5?degree=12", "", "")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/errors/fit", body["type"])
	assert.Equal(t, "cathode", body["half"])
	assert.EqualValues(t, 4, body["samples"])
}

func TestFitHandler_ExportReport(t *testing.T) {
	generated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockAnalysisService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "no body writes csv",
			setupMock: func(m *MockAnalysisService) {
				m.On("Report", 5.0, "", services.DefaultDegree).Return(services.Report{
					ScanRate: 5, Format: "csv", Files: []string{"scan_5_full.csv"}, GeneratedAt: generated,
				}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"scan_5_full.csv"`,
		},
		{
			name: "xlsx with degree",
			body: `{"format":"xlsx","degree":4}`,
			setupMock: func(m *MockAnalysisService) {
				m.On("Report", 5.0, "xlsx", 4).Return(services.Report{
					ScanRate: 5, Format: "xlsx", Files: []string{"scan_5.xlsx"}, GeneratedAt: generated,
				}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"format":"xlsx"`,
		},
		{
			name:           "unknown format",
			body:           `{"format":"pdf"}`,
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `format must be one of: csv, xlsx`,
		},
		{
			name:           "malformed body",
			body:           `{"format":`,
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"INVALID_REQUEST"`,
		},
		{
			name: "recording missing",
			body: `{}`,
			setupMock: func(m *MockAnalysisService) {
				m.On("Report", 5.0, "", services.DefaultDegree).
					Return(services.Report{}, fmt.Errorf("%w: 5", services.ErrDatasetMissing))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `no recording uploaded for scan rate 5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAnalysisService)
			tt.setupMock(mockService)

			logger, errorHandler, validator := testDeps()
			handler := NewFitHandler(mockService, validator, logger, errorHandler)

			rec := serve(t, "/api/reports", handler.ReportRoutes(), http.MethodPost, "/api/reports/5", "application/json", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
