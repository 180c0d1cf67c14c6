package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "cvscan/internal/errors"
	"cvscan/internal/services"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"5", 5, false},
		{"2.5", 2.5, false},
		{"1e2", 100, false},
		{"", 0, true},
		{"0", 0, true},
		{"-1", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"fast", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseRate(tt.raw)
			if tt.wantErr {
				var apiErr *apierrors.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"incomplete", &services.SessionIncompleteError{Missing: []float64{5}}, http.StatusConflict, apierrors.CodeSessionIncomplete},
		{"no rates", services.ErrNoScanRates, http.StatusConflict, apierrors.CodeConflict},
		{"undeclared", fmt.Errorf("%w: 5", services.ErrScanRateNotFound), http.StatusNotFound, apierrors.CodeNotFound},
		{"not uploaded", fmt.Errorf("%w: 5", services.ErrDatasetMissing), http.StatusNotFound, apierrors.CodeNotFound},
		{"bad rate", services.ErrInvalidScanRate, http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"bad view", services.ErrInvalidView, http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"bad half", services.ErrInvalidHalf, http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"bad degree", services.ErrInvalidDegree, http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"bad format", services.ErrInvalidFormat, http.StatusBadRequest, apierrors.CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *apierrors.APIError
			require.ErrorAs(t, translateError(tt.err), &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}
}

func TestTranslateError_PassesThroughUnknown(t *testing.T) {
	for _, err := range []error{errors.New("boom"), context.Canceled} {
		assert.Same(t, err, translateError(err))
	}
}

func TestTranslateRateError(t *testing.T) {
	err := translateRateError(fmt.Errorf("%w: 2.5", services.ErrDatasetMissing), 2.5)

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, map[string]float64{"scan_rate": 2.5}, apiErr.Details)
}
