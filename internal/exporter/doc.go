// Package exporter writes analysis reports to disk.
//
// CSVWriter is the low level writer: headed CSV files below a base
// directory, with an optional UTF-8 BOM so spreadsheet tools detect the
// encoding.
//
// Two Exporter implementations turn a Report (the second cycle of one scan
// rate, its halves and optionally their polynomial fits) into files:
//
//   - CSVExporter writes scan_<rate>_full.csv, scan_<rate>_anode.csv and
//     scan_<rate>_cathode.csv, plus scan_<rate>_fit_anode.csv,
//     scan_<rate>_fit_cathode.csv and scan_<rate>_coefficients.csv when fits
//     are present.
//   - WorkbookExporter writes everything into scan_<rate>.xlsx, one sheet per
//     table and a Summary sheet.
//
// Example usage:
//
//	exp, err := exporter.New(exporter.FormatXLSX, paths.ReportsDir, logger)
//	if err != nil {
//		return err
//	}
//	files, err := exp.Export(ctx, report)
package exporter
