package http

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "cvscan/internal/errors"
	"cvscan/internal/services"
)

type rateKey struct{}

// RateCtx parses the {rate} URL parameter and stores it in the request
// context.
func RateCtx(errorHandler *apierrors.ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rate, err := parseRate(chi.URLParam(r, "rate"))
			if err != nil {
				errorHandler.HandleError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), rateKey{}, rate)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rateFromContext returns the scan rate stored by RateCtx.
func rateFromContext(ctx context.Context) float64 {
	rate, _ := ctx.Value(rateKey{}).(float64)
	return rate
}

func parseRate(raw string) (float64, error) {
	if raw == "" {
		return 0, apierrors.ErrValidation("rate", "Scan rate is required")
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(rate > 0) || math.IsInf(rate, 0) {
		return 0, apierrors.ErrValidation("rate", "Scan rate must be a positive number")
	}
	return rate, nil
}

// translateError maps service errors onto API errors. Errors it does not
// know are returned unchanged for the ErrorHandler to classify.
func translateError(err error) error {
	var incomplete *services.SessionIncompleteError
	switch {
	case errors.As(err, &incomplete):
		return apierrors.SessionIncomplete(incomplete.Missing)
	case errors.Is(err, services.ErrNoScanRates):
		return apierrors.New(http.StatusConflict, apierrors.CodeConflict, "No scan rates have been declared")
	case errors.Is(err, services.ErrScanRateNotFound), errors.Is(err, services.ErrDatasetMissing):
		return apierrors.New(http.StatusNotFound, apierrors.CodeNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidScanRate):
		return apierrors.ErrValidation("scan_rates", err.Error())
	case errors.Is(err, services.ErrInvalidView):
		return apierrors.ErrValidation("view", err.Error())
	case errors.Is(err, services.ErrInvalidHalf):
		return apierrors.ErrValidation("half", err.Error())
	case errors.Is(err, services.ErrInvalidDegree):
		return apierrors.ErrValidation("degree", err.Error())
	case errors.Is(err, services.ErrInvalidFormat):
		return apierrors.ErrValidation("format", err.Error())
	}
	return err
}

// translateRateError is translateError for requests addressing one scan
// rate, so not-found responses carry it.
func translateRateError(err error, rate float64) error {
	switch {
	case errors.Is(err, services.ErrScanRateNotFound):
		return apierrors.ScanRateNotFound(rate)
	case errors.Is(err, services.ErrDatasetMissing):
		return apierrors.DatasetNotFound(rate)
	}
	return translateError(err)
}
