package dataprocessing

import (
	"errors"
	"fmt"
)

var (
	// ErrDataIntegrity matches any *DataIntegrityError via errors.Is.
	ErrDataIntegrity = errors.New("dataprocessing: data integrity violation")

	// ErrSchemaMismatch matches any *SchemaError via errors.Is.
	ErrSchemaMismatch = errors.New("dataprocessing: schema mismatch")
)

// DataIntegrityError reports a recording that does not contain a complete
// second cycle. The data itself is defective, so callers must not retry.
type DataIntegrityError struct {
	Source    string
	Crossings int
}

func (e *DataIntegrityError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("fewer than 3 cycles detected (%d crossings), check the data", e.Crossings)
	}
	return fmt.Sprintf("fewer than 3 cycles detected in %s (%d crossings), check the data", e.Source, e.Crossings)
}

// Is lets errors.Is(err, ErrDataIntegrity) succeed.
func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

// Kind classifies the error for metrics.
func (e *DataIntegrityError) Kind() string { return "data_integrity" }

// WithSource returns a copy of the error labelled with source.
func (e *DataIntegrityError) WithSource(source string) *DataIntegrityError {
	cp := *e
	cp.Source = source
	return &cp
}

// SchemaError reports a table that does not follow the potentiostat column
// contract or contains a cell that is not a number.
type SchemaError struct {
	Column string
	Row    int // 1-based sheet row, 0 when the problem is a missing column
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("schema mismatch at row %d, column %q: %s", e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("schema mismatch, column %q: %s", e.Column, e.Reason)
}

// Is lets errors.Is(err, ErrSchemaMismatch) succeed.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// Kind classifies the error for metrics.
func (e *SchemaError) Kind() string { return "schema" }
