package telemetry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is a single interaction attempt reported by a decoy or mesh node.
// Once a risk score has been attached the event is immutable.
type Event struct {
	ID        string   `json:"id,omitempty"`
	SourceIP  string   `json:"source_ip"`
	Service   string   `json:"service"`
	Path      string   `json:"path,omitempty"`
	Payload   string   `json:"payload,omitempty"`
	Timestamp string   `json:"ts,omitempty"`
	RiskScore *float64 `json:"risk_score,omitempty"`
}

// ValidationError reports a missing or invalid required field on an
// ingested event.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event validation failed: missing or invalid field %q", e.Field)
}

// Validate checks the required ingestion fields. It performs no side effects;
// callers reject the event before touching the log or the buffer.
func (ev *Event) Validate() error {
	if ev.SourceIP == "" {
		return &ValidationError{Field: "source_ip"}
	}
	if ev.Service == "" {
		return &ValidationError{Field: "service"}
	}
	return nil
}

// Normalize assigns the ingestion-time identifiers: a fresh event ID and,
// when the caller supplied none, a UTC ISO-8601 timestamp with Z suffix.
func (ev *Event) Normalize(now time.Time) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp == "" {
		ev.Timestamp = now.UTC().Format(time.RFC3339Nano)
	}
}

// WithScore returns a copy of the event carrying the given risk score.
func (ev Event) WithScore(score float64) Event {
	ev.RiskScore = &score
	return ev
}
