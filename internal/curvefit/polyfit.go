// Package curvefit fits least-squares polynomials to half-cycle samples for
// display. The fits carry no electrochemical meaning.
package curvefit

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"cvscan/pkg/contracts/domain"
)

// FitPolynomial fits a polynomial of the given degree to (x, y) in the least
// squares sense and evaluates it at every x.
//
// Coefficients are returned highest degree first, length degree+1, in the
// same order numpy.polyfit uses. fitted[i] corresponds to x[i].
//
// The system is solved by QR factorisation of the Vandermonde matrix built
// on x centred and scaled to [-1, 1]. A *FitError is returned when the
// lengths differ, degree is negative, there are not more samples than the
// degree, fewer distinct x values than degree+1 exist, or any input is not
// finite.
func FitPolynomial(x, y []float64, degree int) (coeffs, fitted []float64, err error) {
	if err := validate(x, y, degree); err != nil {
		return nil, nil, err
	}

	mu, scale := centre(x)
	n := degree + 1
	m := len(x)

	// Vandermonde in ascending powers of t = (x - mu) / scale.
	design := mat.NewDense(m, n, nil)
	for i, xi := range x {
		t := (xi - mu) / scale
		p := 1.0
		for j := 0; j < n; j++ {
			design.Set(i, j, p)
			p *= t
		}
	}

	var qr mat.QR
	qr.Factorize(design)

	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, mat.NewVecDense(m, append([]float64(nil), y...))); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, nil, &FitError{Degree: degree, Samples: m, Reason: "design matrix is ill-conditioned"}
		}
		return nil, nil, &FitError{Degree: degree, Samples: m, Reason: err.Error()}
	}

	scaled := make([]float64, n)
	for j := range scaled {
		scaled[j] = sol.AtVec(j)
	}

	fitted = make([]float64, m)
	for i, xi := range x {
		fitted[i] = hornerAscending(scaled, (xi-mu)/scale)
	}

	return unscale(scaled, mu, scale), fitted, nil
}

// Evaluate computes the polynomial with highest-degree-first coefficients at
// every point of x.
func Evaluate(coeffs, x []float64) []float64 {
	out := make([]float64, len(x))
	for i, xi := range x {
		var v float64
		for _, c := range coeffs {
			v = v*xi + c
		}
		out[i] = v
	}
	return out
}

// Overlay samples the fitted polynomial at n evenly spaced potentials
// spanning fit.X, for drawing a smooth curve over the measured points.
// It returns nil slices when fit has no samples or n < 2.
func Overlay(fit domain.FitResult, n int) (x, y []float64) {
	if len(fit.X) == 0 || n < 2 {
		return nil, nil
	}
	x = floats.Span(make([]float64, n), floats.Min(fit.X), floats.Max(fit.X))
	return x, Evaluate(fit.Coeffs, x)
}

// RSquared returns the coefficient of determination of fitted against y.
// A constant y that is reproduced exactly scores 1.
func RSquared(y, fitted []float64) float64 {
	r2 := stat.RSquaredFrom(fitted, y, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		for i := range y {
			if math.Abs(y[i]-fitted[i]) > 1e-12*math.Max(1, math.Abs(y[i])) {
				return 0
			}
		}
		return 1
	}
	return r2
}

func validate(x, y []float64, degree int) error {
	switch {
	case degree < 0:
		return &FitError{Degree: degree, Samples: len(x), Reason: "degree must not be negative"}
	case len(x) != len(y):
		return &FitError{Degree: degree, Samples: len(x), Reason: "x and y differ in length"}
	case len(x) <= degree:
		return &FitError{Degree: degree, Samples: len(x), Reason: "under-determined system, need more samples than the degree"}
	}

	distinct := make(map[float64]struct{}, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return &FitError{Degree: degree, Samples: len(x), Reason: "non-finite sample"}
		}
		distinct[x[i]] = struct{}{}
	}
	if len(distinct) <= degree {
		return &FitError{Degree: degree, Samples: len(x), Reason: "rank deficient, too few distinct x values"}
	}
	return nil
}

// centre returns the midpoint of x and the half range used for scaling.
func centre(x []float64) (mu, scale float64) {
	lo, hi := x[0], x[0]
	for _, v := range x[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mu = (lo + hi) / 2
	scale = (hi - lo) / 2
	if scale == 0 {
		scale = 1
	}
	return mu, scale
}

func hornerAscending(c []float64, t float64) float64 {
	var v float64
	for j := len(c) - 1; j >= 0; j-- {
		v = v*t + c[j]
	}
	return v
}

// unscale converts ascending coefficients in t = (x - mu) / scale to
// descending coefficients in x.
func unscale(c []float64, mu, scale float64) []float64 {
	n := len(c)
	asc := make([]float64, n)
	binom := make([]float64, n) // row j of Pascal's triangle
	for j := 0; j < n; j++ {
		for k := j; k > 0; k-- {
			if k == j {
				binom[k] = 1
			} else {
				binom[k] += binom[k-1]
			}
		}
		binom[0] = 1

		w := c[j] / math.Pow(scale, float64(j))
		for k := 0; k <= j; k++ {
			asc[k] += w * binom[k] * math.Pow(-mu, float64(j-k))
		}
	}

	desc := make([]float64, n)
	for k := range asc {
		desc[n-1-k] = asc[k]
	}
	return desc
}
