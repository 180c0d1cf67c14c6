package curvefit

import (
	"errors"
	"fmt"
)

// ErrFit matches any *FitError via errors.Is.
var ErrFit = errors.New("curvefit: fit failed")

// FitError reports a polynomial fit that cannot be computed from its
// inputs, most often because there are not more samples than the degree.
type FitError struct {
	Half    string // "anode", "cathode" or empty for a bare fit
	Degree  int
	Samples int
	Reason  string
}

func (e *FitError) Error() string {
	prefix := "polynomial fit"
	if e.Half != "" {
		prefix = e.Half + " polynomial fit"
	}
	return fmt.Sprintf("%s of degree %d over %d samples: %s", prefix, e.Degree, e.Samples, e.Reason)
}

// Is lets errors.Is(err, ErrFit) succeed.
func (e *FitError) Is(target error) bool {
	return target == ErrFit
}

// Kind classifies the error for metrics.
func (e *FitError) Kind() string { return "fit" }
