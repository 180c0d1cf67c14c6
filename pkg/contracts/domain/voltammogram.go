package domain

// Column identifiers of a potentiostat export. Every table entering the
// system must carry both columns; parsers reject anything else.
const (
	PotentialColumn = "WE(1).Potential (V)"
	CurrentColumn   = "WE(1).Current (A)"
)

// Sample is one measurement instant of a cyclic voltammetry recording.
type Sample struct {
	Potential float64 `json:"potential"`
	Current   float64 `json:"current"`
}

// Table is an ordered sequence of samples. Row order is acquisition order
// and is significant: every derived table preserves it.
type Table []Sample

// Len returns the number of rows.
func (t Table) Len() int { return len(t) }

// Potentials returns a copy of the potential column.
func (t Table) Potentials() []float64 {
	out := make([]float64, len(t))
	for i, s := range t {
		out[i] = s.Potential
	}
	return out
}

// Currents returns a copy of the current column.
func (t Table) Currents() []float64 {
	out := make([]float64, len(t))
	for i, s := range t {
		out[i] = s.Current
	}
	return out
}

// Clone returns an independent copy of the table.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// CycleData bundles the second cycle of a recording with its two halves.
type CycleData struct {
	Cycle   Table `json:"cycle"`
	Anode   Table `json:"anode"`
	Cathode Table `json:"cathode"`
}

// CurveView selects which part of a cycle is requested for display.
type CurveView string

const (
	ViewFull    CurveView = "full"
	ViewAnode   CurveView = "anode"
	ViewCathode CurveView = "cathode"
)

// Valid reports whether v is a known view.
func (v CurveView) Valid() bool {
	switch v {
	case ViewFull, ViewAnode, ViewCathode:
		return true
	}
	return false
}

// Half names one side of a split cycle.
type Half string

const (
	HalfAnode   Half = "anode"
	HalfCathode Half = "cathode"
)

// Valid reports whether h is a known half.
func (h Half) Valid() bool {
	return h == HalfAnode || h == HalfCathode
}

// CurveSeries is a plot-ready scatter series for one scan rate.
type CurveSeries struct {
	ScanRate float64   `json:"scan_rate"`
	View     CurveView `json:"view"`
	Label    string    `json:"label"`
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
}

// CycleSummary describes the shape of a recording's second cycle.
type CycleSummary struct {
	ScanRate      float64 `json:"scan_rate"`
	TotalRows     int     `json:"total_rows"`
	Crossings     int     `json:"crossings"`
	CycleStart    int     `json:"cycle_start"`
	CycleRows     int     `json:"cycle_rows"`
	AnodeRows     int     `json:"anode_rows"`
	CathodeRows   int     `json:"cathode_rows"`
	PeakPotential float64 `json:"peak_potential"`
	PeakCurrent   float64 `json:"peak_current"`
}
