package api

import (
	"time"

	"cvscan/pkg/contracts/domain"
)

// SessionResponse describes the scan rates of the session and their
// uploaded recordings.
type SessionResponse struct {
	ScanRates []float64        `json:"scan_rates"`
	Datasets  []domain.Dataset `json:"datasets"`
	Missing   []float64        `json:"missing"`
	Complete  bool             `json:"upload_complete"`
}

// CurvesResponse carries one series per scan rate, in session order.
type CurvesResponse struct {
	View   domain.CurveView     `json:"view"`
	Series []domain.CurveSeries `json:"series"`
}

// FitResponse carries the fits of one scan rate. When a single half was
// requested the other one is omitted. Overlays are present only when
// samples were requested.
type FitResponse struct {
	ScanRate       float64             `json:"scan_rate"`
	Degree         int                 `json:"degree"`
	Anode          *domain.FitResult   `json:"anode,omitempty"`
	Cathode        *domain.FitResult   `json:"cathode,omitempty"`
	AnodeOverlay   *domain.CurveSeries `json:"anode_overlay,omitempty"`
	CathodeOverlay *domain.CurveSeries `json:"cathode_overlay,omitempty"`
}

// ReportResponse lists the report files written for one scan rate.
type ReportResponse struct {
	ScanRate    float64   `json:"scan_rate"`
	Format      string    `json:"format"`
	Files       []string  `json:"files"`
	GeneratedAt time.Time `json:"generated_at"`
}
