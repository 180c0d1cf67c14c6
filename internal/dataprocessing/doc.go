// Package dataprocessing turns a cyclic voltammetry recording into its
// second cycle and the anodic and cathodic halves of that cycle.
//
// # Components
//
//  1. Parser: reads the Potential and Current columns of an .xlsx or .csv
//     recording into a domain.Table
//  2. Cycle extraction: finds the rows where the potential drops below
//     ZeroThreshold and slices the table between the second and third of them
//  3. Split: partitions the cycle at its potential peak
//  4. Writer: renders a table back to the canonical two column CSV
//
// # Usage
//
//	table, err := dataprocessing.ParseFile("scan-5.xlsx")
//	if err != nil {
//	    return err
//	}
//	data, err := dataprocessing.GetCycleData(table)
//	if errors.Is(err, dataprocessing.ErrDataIntegrity) {
//	    // fewer than three cycles were recorded
//	}
//
// Errors carry a Kind: data_integrity for recordings that are too short and
// schema for files without the expected columns or with non numeric cells.
package dataprocessing
