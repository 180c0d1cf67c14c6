package websocket

import "time"

// Event types pushed to clients.
const (
	TypeConnection = "connection"

	EventSessionUpdated = "session:updated"
	EventSessionReset   = "session:reset"
	EventDatasetStored  = "dataset:stored"
	EventDatasetRemoved = "dataset:removed"
	EventAnalysisFailed = "analysis:failed"
	EventReportExported = "report:exported"
)

// Message is the envelope of every server-sent frame.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}
