package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvscan/internal/services"
	api "cvscan/pkg/contracts/api/v1"
	"cvscan/pkg/contracts/domain"
)

func TestSessionHandler_SetScanRates(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockDatasetService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "declares rates",
			body: `{"scan_rates":"5, 10, 20"}`,
			setupMock: func(m *MockDatasetService) {
				m.On("SetScanRates", "5, 10, 20").Return(domain.SessionState{
					ScanRates: []float64{5, 10, 20},
					Missing:   []float64{5, 10, 20},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"missing":[5,10,20]`,
		},
		{
			name:           "missing field",
			body:           `{}`,
			setupMock:      func(m *MockDatasetService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"VALIDATION_FAILED"`,
		},
		{
			name:           "unknown field",
			body:           `{"rates":"5"}`,
			setupMock:      func(m *MockDatasetService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"INVALID_REQUEST"`,
		},
		{
			name: "unparseable rate",
			body: `{"scan_rates":"5, abc"}`,
			setupMock: func(m *MockDatasetService) {
				m.On("SetScanRates", "5, abc").
					Return(domain.SessionState{}, fmt.Errorf("%w: %q", services.ErrInvalidScanRate, "abc"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"scan_rates"`,
		},
		{
			name: "only separators",
			body: `{"scan_rates":" , "}`,
			setupMock: func(m *MockDatasetService) {
				m.On("SetScanRates", " , ").Return(domain.SessionState{}, services.ErrNoScanRates)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"CONFLICT"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDatasetService)
			tt.setupMock(mockService)

			logger, errorHandler, validator := testDeps()
			handler := NewSessionHandler(mockService, validator, logger, errorHandler)

			rec := serve(t, "/api/session", handler.Routes(), http.MethodPut, "/api/session/scan-rates", "application/json", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestSessionHandler_GetSession(t *testing.T) {
	mockService := new(MockDatasetService)
	mockService.On("State").Return(domain.SessionState{})

	logger, errorHandler, validator := testDeps()
	handler := NewSessionHandler(mockService, validator, logger, errorHandler)

	rec := serve(t, "/api/session", handler.Routes(), http.MethodGet, "/api/session", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.ScanRates)
	assert.NotNil(t, resp.Datasets)
	assert.NotNil(t, resp.Missing)
	assert.False(t, resp.Complete)
	assert.Contains(t, rec.Body.String(), `"upload_complete":false`)
}

func TestSessionHandler_ResetSession(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"cleared", nil, http.StatusNoContent},
		{"storage failure", errors.New("disk gone"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDatasetService)
			mockService.On("Reset").Return(tt.err)

			logger, errorHandler, validator := testDeps()
			handler := NewSessionHandler(mockService, validator, logger, errorHandler)

			rec := serve(t, "/api/session", handler.Routes(), http.MethodDelete, "/api/session", "", "")

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}
