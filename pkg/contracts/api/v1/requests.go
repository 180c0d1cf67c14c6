// Package api contains the request and response contracts of the cvscan
// HTTP API. Version v1 is the current stable API version.
package api

// ScanRatesRequest declares the scan rates of a session as free text,
// for example "5, 10, 20".
type ScanRatesRequest struct {
	ScanRates string `json:"scan_rates" validate:"required,max=1024"`
}

// CurveQuery selects the part of a cycle returned by curve endpoints.
type CurveQuery struct {
	View string `json:"view" query:"view" validate:"omitempty,oneof=full anode cathode"`
}

// FitQuery selects the half and degree of a polynomial fit. A nil Degree
// means the configured default. A non zero Samples adds an overlay of the
// fit sampled at that many evenly spaced potentials.
type FitQuery struct {
	Half    string `json:"half" query:"half" validate:"omitempty,oneof=anode cathode"`
	Degree  *int   `json:"degree" query:"degree" validate:"omitempty,min=0"`
	Samples int    `json:"samples" query:"samples" validate:"omitempty,min=2,max=5000"`
}

// ReportRequest asks for report files of one scan rate.
type ReportRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv xlsx"`
	Degree *int   `json:"degree,omitempty" validate:"omitempty,min=0"`
}

// UploadRequest describes the file part of a dataset upload.
type UploadRequest struct {
	Filename string `json:"filename" validate:"required,max=255,filename,spreadsheet"`
}
