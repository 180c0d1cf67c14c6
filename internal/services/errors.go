package services

import (
	"errors"
	"fmt"
	"strings"

	"cvscan/internal/config"
)

// Service errors
var (
	// Session errors
	ErrNoScanRates       = errors.New("no scan rates declared")
	ErrInvalidScanRate   = errors.New("invalid scan rate")
	ErrScanRateNotFound  = errors.New("scan rate not declared in session")
	ErrDatasetMissing    = errors.New("no recording uploaded for scan rate")
	ErrSessionIncomplete = errors.New("recordings missing for some scan rates")

	// Analysis errors
	ErrInvalidView   = errors.New("invalid curve view")
	ErrInvalidHalf   = errors.New("invalid half")
	ErrInvalidDegree = errors.New("invalid polynomial degree")
	ErrInvalidFormat = errors.New("invalid report format")
)

// SessionIncompleteError lists the scan rates still waiting for a
// recording. It matches ErrSessionIncomplete.
type SessionIncompleteError struct {
	Missing []float64
}

func (e *SessionIncompleteError) Error() string {
	rates := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		rates[i] = config.FormatScanRate(r)
	}
	return fmt.Sprintf("%s: %s", ErrSessionIncomplete, strings.Join(rates, ", "))
}

// Is lets errors.Is(err, ErrSessionIncomplete) succeed.
func (e *SessionIncompleteError) Is(target error) bool {
	return target == ErrSessionIncomplete
}

func rateError(sentinel error, rate float64) error {
	return fmt.Errorf("%w: %s", sentinel, config.FormatScanRate(rate))
}
