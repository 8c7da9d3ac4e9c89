package report

import (
	"time"

	"github.com/mehtameet005/utm-tracker/internal/tracker"
)

// SourceUnknown groups events that carry no attribution snapshot.
const SourceUnknown = "unknown"

// JourneyStep is one entry in a visitor's ordered journey.
type JourneyStep struct {
	EventType tracker.EventType `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	PageURL   string            `json:"page_url,omitempty"`
}

// Report is the aggregate view of an event log, recomputed on demand.
//
// Invariant: TotalEvents always equals the length of the log it was built
// from, and the funnel counts partition it: every event lands in exactly
// one bucket, malformed or not.
type Report struct {
	TotalEvents int `json:"total_events"`

	// SourceCounts maps attribution source -> event count, with
	// unattributed events under SourceUnknown.
	SourceCounts map[string]int `json:"source_counts"`

	// FunnelCounts maps event type -> event count.
	FunnelCounts map[tracker.EventType]int `json:"funnel_counts"`

	// TimeMetrics maps identity -> elapsed milliseconds since that
	// identity's first event, one entry per event in arrival order.
	TimeMetrics map[string][]int64 `json:"time_metrics"`

	// UserJourneys maps identity -> ordered journey steps.
	UserJourneys map[string][]JourneyStep `json:"user_journeys"`
}
