package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"cvscan/pkg/contracts/domain"
)

// ErrUnsupportedFormat is returned by ParseFile for unknown file extensions.
var ErrUnsupportedFormat = errors.New("dataprocessing: unsupported file format")

// ParseFile reads a recording from an .xlsx or .csv file.
func ParseFile(filePath string) (domain.Table, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx", ".xlsm":
		return ParseWorkbook(filePath)
	case ".csv":
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		return ParseCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// ParseWorkbook reads a potentiostat Excel export from disk.
func ParseWorkbook(filePath string) (domain.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return parseWorkbook(f)
}

// ParseWorkbookReader reads a potentiostat Excel export from r.
func ParseWorkbookReader(r io.Reader) (domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return parseWorkbook(f)
}

func parseWorkbook(f *excelize.File) (domain.Table, error) {
	var lastErr error
	missing := missingColumnsError(nil)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			lastErr = err
			continue
		}
		header, cols, ok := findHeader(rows)
		if !ok {
			if e := missingColumnsError(rows); e.Column == domain.CurrentColumn {
				missing = e
			}
			continue
		}

		slog.Debug("Found recording sheet",
			slog.String("sheet_name", name),
			slog.Int("header_row", header+1),
			slog.Int("total_rows", len(rows)))

		return parseRows(rows[header+1:], header+2, cols)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to read sheets: %w", lastErr)
	}
	return nil, missing
}

// ParseCSV reads a recording whose first non-empty line is the header.
func ParseCSV(r io.Reader) (domain.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	header, cols, ok := findHeader(rows)
	if !ok {
		return nil, missingColumnsError(rows)
	}
	return parseRows(rows[header+1:], header+2, cols)
}

// columnIndex holds the positions of the required columns in a row.
type columnIndex struct {
	potential int
	current   int
}

// findHeader locates the first row that names both required columns.
func findHeader(rows [][]string) (int, columnIndex, bool) {
	for i, row := range rows {
		cols := columnIndex{potential: -1, current: -1}
		for j, cell := range row {
			switch strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")) {
			case domain.PotentialColumn:
				cols.potential = j
			case domain.CurrentColumn:
				cols.current = j
			}
		}
		if cols.potential >= 0 && cols.current >= 0 {
			return i, cols, true
		}
	}
	return -1, columnIndex{}, false
}

// missingColumnsError names the potential column unless some row already
// carries it, in which case the current column is the one missing.
func missingColumnsError(rows [][]string) *SchemaError {
	column := domain.PotentialColumn
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")) == domain.PotentialColumn {
				column = domain.CurrentColumn
			}
		}
	}
	return &SchemaError{Column: column, Reason: "required column not found"}
}

// parseRows converts data rows to samples. firstRow is the 1-based row
// number of rows[0] in the source, used in error messages.
func parseRows(rows [][]string, firstRow int, cols columnIndex) (domain.Table, error) {
	table := make(domain.Table, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		potential, err := parseCell(row, cols.potential, domain.PotentialColumn, firstRow+i)
		if err != nil {
			return nil, err
		}
		current, err := parseCell(row, cols.current, domain.CurrentColumn, firstRow+i)
		if err != nil {
			return nil, err
		}
		table = append(table, domain.Sample{Potential: potential, Current: current})
	}
	return table, nil
}

func parseCell(row []string, idx int, column string, rowNum int) (float64, error) {
	if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
		return 0, &SchemaError{Column: column, Row: rowNum, Reason: "empty cell"}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return 0, &SchemaError{Column: column, Row: rowNum, Reason: fmt.Sprintf("not a number: %q", row[idx])}
	}
	return v, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
