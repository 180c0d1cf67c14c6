package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"cvscan/pkg/contracts/domain"
)

// Report formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Report is everything exported for one scan rate. Fits is optional.
type Report struct {
	ScanRate float64
	Cycle    domain.CycleData
	Fits     *domain.HalfFits
	Summary  domain.CycleSummary
}

// Exporter writes a report and returns the paths of the files it created.
type Exporter interface {
	Export(ctx context.Context, report Report) ([]string, error)
	Format() string
}

// New returns the exporter for format, writing below dir.
func New(format, dir string, logger *slog.Logger) (Exporter, error) {
	switch format {
	case "", FormatCSV:
		return NewCSVExporter(dir, logger), nil
	case FormatXLSX:
		return NewWorkbookExporter(dir, logger), nil
	default:
		return nil, fmt.Errorf("exporter: unknown format %q", format)
	}
}

var (
	seriesHeaders      = []string{"potential", "current"}
	fitHeaders         = []string{"potential", "current", "fitted_current"}
	coefficientHeaders = []string{"half", "degree", "r_squared", "power", "coefficient"}
)

// block is one named table of a report: a CSV file or a workbook sheet.
type block struct {
	name    string
	headers []string
	records [][]string
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func reportPrefix(rate float64) string {
	return "scan_" + strconv.FormatFloat(rate, 'f', -1, 64)
}

func seriesRecords(table domain.Table) [][]string {
	records := make([][]string, len(table))
	for i, s := range table {
		records[i] = []string{formatFloat(s.Potential), formatFloat(s.Current)}
	}
	return records
}

func fitRecords(fit domain.FitResult) [][]string {
	records := make([][]string, len(fit.X))
	for i := range fit.X {
		records[i] = []string{formatFloat(fit.X[i]), formatFloat(fit.Y[i]), formatFloat(fit.FittedY[i])}
	}
	return records
}

// coefficientRecords lists both halves, one row per power, highest first.
func coefficientRecords(fits domain.HalfFits) [][]string {
	var records [][]string
	for _, half := range []domain.Half{domain.HalfAnode, domain.HalfCathode} {
		fit := fits.Get(half)
		for i, c := range fit.Coeffs {
			records = append(records, []string{
				string(half),
				strconv.Itoa(fit.Degree),
				formatFloat(fit.RSquared),
				strconv.Itoa(fit.Degree - i),
				formatFloat(c),
			})
		}
	}
	return records
}

// CSVExporter writes one CSV file per view and per fitted half.
type CSVExporter struct {
	writer *CSVWriter
	logger *slog.Logger
}

// NewCSVExporter creates a CSV report exporter writing below dir.
func NewCSVExporter(dir string, logger *slog.Logger) *CSVExporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "csv_exporter"))
	return &CSVExporter{writer: NewCSVWriter(dir, logger), logger: logger}
}

// Format implements Exporter.
func (e *CSVExporter) Format() string { return FormatCSV }

// Export implements Exporter.
func (e *CSVExporter) Export(ctx context.Context, report Report) ([]string, error) {
	prefix := reportPrefix(report.ScanRate)

	files := []block{
		{prefix + "_full.csv", seriesHeaders, seriesRecords(report.Cycle.Cycle)},
		{prefix + "_anode.csv", seriesHeaders, seriesRecords(report.Cycle.Anode)},
		{prefix + "_cathode.csv", seriesHeaders, seriesRecords(report.Cycle.Cathode)},
	}
	if report.Fits != nil {
		files = append(files,
			block{prefix + "_fit_anode.csv", fitHeaders, fitRecords(report.Fits.Anode)},
			block{prefix + "_fit_cathode.csv", fitHeaders, fitRecords(report.Fits.Cathode)},
			block{prefix + "_coefficients.csv", coefficientHeaders, coefficientRecords(*report.Fits)},
		)
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path, err := e.writer.WriteCSV(f.name, WriteOptions{Headers: f.headers, Records: f.records})
		if err != nil {
			return written, fmt.Errorf("export %s: %w", f.name, err)
		}
		written = append(written, path)
	}

	e.logger.InfoContext(ctx, "CSV report exported",
		slog.Float64("scan_rate", report.ScanRate),
		slog.Int("files", len(written)))
	return written, nil
}

// WorkbookExporter writes a single xlsx workbook per scan rate with one
// sheet per view.
type WorkbookExporter struct {
	dir    string
	logger *slog.Logger
}

// NewWorkbookExporter creates an xlsx report exporter writing below dir.
func NewWorkbookExporter(dir string, logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{dir: dir, logger: logger.With(slog.String("component", "workbook_exporter"))}
}

// Format implements Exporter.
func (e *WorkbookExporter) Format() string { return FormatXLSX }

// Sheet names of an exported workbook.
const (
	SheetSummary      = "Summary"
	SheetFull         = "Full"
	SheetAnode        = "Anode"
	SheetCathode      = "Cathode"
	SheetFitAnode     = "Fit Anode"
	SheetFitCathode   = "Fit Cathode"
	SheetCoefficients = "Coefficients"
)

// Export implements Exporter.
func (e *WorkbookExporter) Export(ctx context.Context, report Report) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	if err := writeRows(f, SheetSummary, []string{"field", "value"}, summaryRecords(report.Summary)); err != nil {
		return nil, err
	}

	sheets := []block{
		{SheetFull, seriesHeaders, seriesRecords(report.Cycle.Cycle)},
		{SheetAnode, seriesHeaders, seriesRecords(report.Cycle.Anode)},
		{SheetCathode, seriesHeaders, seriesRecords(report.Cycle.Cathode)},
	}
	if report.Fits != nil {
		sheets = append(sheets,
			block{SheetFitAnode, fitHeaders, fitRecords(report.Fits.Anode)},
			block{SheetFitCathode, fitHeaders, fitRecords(report.Fits.Cathode)},
			block{SheetCoefficients, coefficientHeaders, coefficientRecords(*report.Fits)},
		)
	}
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := writeRows(f, s.name, s.headers, s.records); err != nil {
			return nil, fmt.Errorf("write sheet %s: %w", s.name, err)
		}
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(e.dir, reportPrefix(report.ScanRate)+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save workbook: %w", err)
	}

	e.logger.InfoContext(ctx, "Workbook report exported",
		slog.Float64("scan_rate", report.ScanRate),
		slog.String("path", path),
		slog.Int("sheets", len(f.GetSheetList())))
	return []string{path}, nil
}

// writeRows streams a header and numeric-looking records into sheet.
// Values that parse as floats are stored as numbers.
func writeRows(f *excelize.File, sheet string, headers []string, records [][]string) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := sw.SetRow("A1", row); err != nil {
		return err
	}

	for r, record := range records {
		values := make([]interface{}, len(record))
		for i, v := range record {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				values[i] = n
			} else {
				values[i] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func summaryRecords(s domain.CycleSummary) [][]string {
	return [][]string{
		{"scan_rate", formatFloat(s.ScanRate)},
		{"total_rows", strconv.Itoa(s.TotalRows)},
		{"crossings", strconv.Itoa(s.Crossings)},
		{"cycle_start", strconv.Itoa(s.CycleStart)},
		{"cycle_rows", strconv.Itoa(s.CycleRows)},
		{"anode_rows", strconv.Itoa(s.AnodeRows)},
		{"cathode_rows", strconv.Itoa(s.CathodeRows)},
		{"peak_potential", formatFloat(s.PeakPotential)},
		{"peak_current", formatFloat(s.PeakCurrent)},
	}
}
