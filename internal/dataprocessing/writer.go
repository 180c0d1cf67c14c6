package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"cvscan/pkg/contracts/domain"
)

// WriteCSV writes table in the canonical two-column layout that ParseCSV
// reads back. Values use the shortest representation that round-trips.
func WriteCSV(w io.Writer, table domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{domain.PotentialColumn, domain.CurrentColumn}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range table {
		record := []string{
			strconv.FormatFloat(s.Potential, 'g', -1, 64),
			strconv.FormatFloat(s.Current, 'g', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
