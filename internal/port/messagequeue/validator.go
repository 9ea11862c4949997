package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch {
	case subject == SubjectForkReports:
		var p ForkReportPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.ForkID == "" {
			return fmt.Errorf("schema validation failed for %s: forkId is required", subject)
		}
		switch p.Kind {
		case ReportProgress, ReportOutput, ReportComplete, ReportFail:
		default:
			return fmt.Errorf("schema validation failed for %s: unknown kind %q", subject, p.Kind)
		}
	case strings.HasPrefix(subject, SubjectForkEvents+"."):
		var p ForkEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
	}
	return nil
}
