package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "cvscan/internal/errors"
	api "cvscan/pkg/contracts/api/v1"
)

func newValidation(maxBody int64) *ValidationMiddleware {
	logger := discardLogger()
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false), maxBody)
}

func intPtr(v int) *int { return &v }

func TestValidateStruct(t *testing.T) {
	v := newValidation(1024)

	tests := []struct {
		name       string
		input      interface{}
		wantFields []string
	}{
		{name: "scan rates ok", input: &api.ScanRatesRequest{ScanRates: "5, 10"}},
		{name: "scan rates missing", input: &api.ScanRatesRequest{}, wantFields: []string{"scan_rates"}},
		{name: "curve view ok", input: &api.CurveQuery{View: "anode"}},
		{name: "curve view empty ok", input: &api.CurveQuery{}},
		{name: "curve view bad", input: &api.CurveQuery{View: "sideways"}, wantFields: []string{"view"}},
		{name: "fit ok", input: &api.FitQuery{Half: "cathode", Degree: intPtr(3)}},
		{name: "fit negative degree", input: &api.FitQuery{Degree: intPtr(-1)}, wantFields: []string{"degree"}},
		{name: "fit bad half", input: &api.FitQuery{Half: "both"}, wantFields: []string{"half"}},
		{name: "report bad format", input: &api.ReportRequest{Format: "pdf"}, wantFields: []string{"format"}},
		{name: "upload xlsx", input: &api.UploadRequest{Filename: "scan 50.xlsx"}},
		{name: "upload csv upper", input: &api.UploadRequest{Filename: "SCAN.CSV"}},
		{name: "upload traversal", input: &api.UploadRequest{Filename: "../etc/passwd.csv"}, wantFields: []string{"filename"}},
		{name: "upload wrong type", input: &api.UploadRequest{Filename: "notes.txt"}, wantFields: []string{"filename"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			var fields []string
			for _, fe := range details.Errors {
				fields = append(fields, fe.Field)
				assert.NotEmpty(t, fe.Message)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	v := newValidation(1024)

	var req api.ScanRatesRequest
	err := v.DecodeJSON(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"scan_rates":"5,10"}`)), &req)
	require.NoError(t, err)
	assert.Equal(t, "5,10", req.ScanRates)

	err = v.DecodeJSON(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"rates":"5"}`)), &req)
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.CodeInvalidRequest, apiErr.ErrorCode)
}

func TestValidateRequest(t *testing.T) {
	v := newValidation(16)
	h := v.ValidateRequest(http.HandlerFunc(okHandler))

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{name: "get passes", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "valid json", method: http.MethodPut, contentType: "application/json", body: `{"a":1}`, wantStatus: http.StatusOK},
		{name: "invalid json", method: http.MethodPut, contentType: "application/json", body: `{"a":`, wantStatus: http.StatusBadRequest},
		{name: "too large", method: http.MethodPut, contentType: "application/json", body: `{"a":"0123456789abcdef"}`, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "multipart untouched", method: http.MethodPost, contentType: "multipart/form-data; boundary=x", body: strings.Repeat("x", 64), wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/session/scan-rates", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
