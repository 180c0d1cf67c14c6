package domain

import "time"

// Dataset describes an uploaded recording stored for one scan rate.
type Dataset struct {
	ID           string    `json:"id" validate:"required,uuid"`
	ScanRate     float64   `json:"scan_rate" validate:"gt=0"`
	OriginalName string    `json:"original_name"`
	UploadPath   string    `json:"upload_path"`
	StoredPath   string    `json:"stored_path"`
	Digest       string    `json:"digest"`
	Rows         int       `json:"rows" validate:"min=0"`
	SizeBytes    int64     `json:"size_bytes" validate:"min=0"`
	StoredAt     time.Time `json:"stored_at"`
}
