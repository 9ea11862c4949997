package messagequeue

import "encoding/json"

// ForkEventPayload is the schema for forks.events.{id} messages.
type ForkEventPayload struct {
	Type   string          `json:"type"`
	ForkID string          `json:"forkId"`
	Data   json.RawMessage `json:"data"`
}

// Report kinds accepted on forks.reports.
const (
	ReportProgress = "progress"
	ReportOutput   = "output"
	ReportComplete = "complete"
	ReportFail     = "fail"
)

// ForkReportPayload is the schema for forks.reports messages.
type ForkReportPayload struct {
	ForkID   string `json:"forkId"`
	Kind     string `json:"kind"`
	Progress int    `json:"progress,omitempty"`
	Line     string `json:"line,omitempty"`
	Message  string `json:"message,omitempty"`
}
