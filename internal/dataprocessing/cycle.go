package dataprocessing

import (
	"cvscan/pkg/contracts/domain"
)

// ZeroThreshold is the near-zero potential below which a row counts as a
// cycle boundary crossing. It tolerates measurement noise around 0 V.
const ZeroThreshold = 0.001

// minCrossings is the number of crossings needed to bound a second cycle.
const minCrossings = 3

// FindCrossings returns, in ascending order, the indices of all rows whose
// potential is below ZeroThreshold.
func FindCrossings(table domain.Table) []int {
	var crossings []int
	for i, s := range table {
		if s.Potential < ZeroThreshold {
			crossings = append(crossings, i)
		}
	}
	return crossings
}

// ExtractSecondCycle returns the rows between the second and third crossing
// (end exclusive) as a new table indexed from zero. The first partial cycle
// is a settling artifact and is always skipped.
//
// A *DataIntegrityError is returned when fewer than three crossings exist;
// no table is returned in that case.
func ExtractSecondCycle(table domain.Table) (domain.Table, error) {
	crossings := FindCrossings(table)
	if len(crossings) < minCrossings {
		return nil, &DataIntegrityError{Crossings: len(crossings)}
	}

	start, end := crossings[1], crossings[2]
	cycle := make(domain.Table, end-start)
	copy(cycle, table[start:end])
	return cycle, nil
}

// PeakIndex returns the index of the maximum potential. Ties resolve to the
// earliest row. It returns -1 for an empty table.
func PeakIndex(table domain.Table) int {
	if len(table) == 0 {
		return -1
	}
	peak := 0
	for i := 1; i < len(table); i++ {
		if table[i].Potential > table[peak].Potential {
			peak = i
		}
	}
	return peak
}

// SplitAnodeCathode partitions a cycle at its potential peak. The anode half
// runs from the first row up to and including the peak, the cathode half
// holds every row after it. Both halves are fresh copies.
//
// An empty cycle yields two empty tables; callers are expected to pass the
// non-empty output of ExtractSecondCycle.
func SplitAnodeCathode(cycle domain.Table) (anode, cathode domain.Table) {
	peak := PeakIndex(cycle)
	if peak < 0 {
		return domain.Table{}, domain.Table{}
	}
	anode = make(domain.Table, peak+1)
	copy(anode, cycle[:peak+1])
	cathode = make(domain.Table, len(cycle)-peak-1)
	copy(cathode, cycle[peak+1:])
	return anode, cathode
}

// GetCycleData extracts the second cycle and splits it in one call.
func GetCycleData(table domain.Table) (domain.CycleData, error) {
	cycle, err := ExtractSecondCycle(table)
	if err != nil {
		return domain.CycleData{}, err
	}
	anode, cathode := SplitAnodeCathode(cycle)
	return domain.CycleData{
		Cycle:   cycle,
		Anode:   anode,
		Cathode: cathode,
	}, nil
}

// Summarize describes the second cycle of table.
func Summarize(table domain.Table) (domain.CycleSummary, error) {
	crossings := FindCrossings(table)
	data, err := GetCycleData(table)
	if err != nil {
		return domain.CycleSummary{}, err
	}

	summary := domain.CycleSummary{
		TotalRows:   len(table),
		Crossings:   len(crossings),
		CycleStart:  crossings[1],
		CycleRows:   len(data.Cycle),
		AnodeRows:   len(data.Anode),
		CathodeRows: len(data.Cathode),
	}
	if peak := PeakIndex(data.Cycle); peak >= 0 {
		summary.PeakPotential = data.Cycle[peak].Potential
		summary.PeakCurrent = data.Cycle[peak].Current
	}
	return summary, nil
}
