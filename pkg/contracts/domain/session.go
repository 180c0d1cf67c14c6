package domain

// SessionState is a snapshot of the scan rates declared for a session and
// the recordings uploaded for them. Datasets and Missing follow the order
// of ScanRates.
type SessionState struct {
	ScanRates []float64 `json:"scan_rates"`
	Datasets  []Dataset `json:"datasets"`
	Missing   []float64 `json:"missing"`
	Complete  bool      `json:"upload_complete"`
}
