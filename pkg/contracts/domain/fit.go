package domain

// FitResult is a polynomial fit of one half-cycle. X and Y are the raw
// samples, FittedY[i] is the polynomial evaluated at X[i]. Coeffs are
// ordered highest degree first and have length Degree+1.
type FitResult struct {
	Degree   int       `json:"degree"`
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	FittedY  []float64 `json:"fitted_y"`
	Coeffs   []float64 `json:"coeffs"`
	RSquared float64   `json:"r_squared"`
}

// HalfFits holds the independent fits of both halves of a cycle.
type HalfFits struct {
	ScanRate float64   `json:"scan_rate"`
	Anode    FitResult `json:"anode"`
	Cathode  FitResult `json:"cathode"`
}

// Get returns the fit for half h.
func (f HalfFits) Get(h Half) FitResult {
	if h == HalfCathode {
		return f.Cathode
	}
	return f.Anode
}
