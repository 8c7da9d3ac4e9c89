package tracker

import (
	"context"
	"time"

	"github.com/mehtameet005/utm-tracker/internal/attribution"
)

// EventType is the funnel step an event represents. The set is open:
// collectors may send custom types and they aggregate like any other.
type EventType string

const (
	EventTypePageView       EventType = "page_view"
	EventTypeButtonClick    EventType = "button_click"
	EventTypeFormSubmission EventType = "form_submission"
)

// Event is one immutable entry in the append-only interaction log.
//
// Invariants:
// - Events are never updated or deleted within the aggregation window.
// - Attribution is a snapshot taken at record time; a record created a
//   moment later does not retroactively attribute earlier events.
type Event struct {
	ID       string    `json:"id" db:"id"`
	Type     EventType `json:"type" db:"type"`
	Identity string    `json:"identity" db:"identity"`

	// Attribution is nil for anonymous visits; aggregation groups those
	// under the "unknown" source.
	Attribution *attribution.Record `json:"attribution,omitempty" db:"attribution"`

	PageURL   string    `json:"page_url,omitempty" db:"page_url"`
	Timestamp time.Time `json:"timestamp" db:"recorded_at"`

	// Details carries collector-declared string pairs. Recognized keys by
	// convention: button_click uses "button_id" and "button_text";
	// form_submission uses "form_id". Unrecognized keys pass through
	// untouched.
	Details map[string]string `json:"details,omitempty" db:"details"`
}

// Repository is the persistence contract for the event log.
//
// It MUST be append-only. No Update/Delete methods are provided; retention
// is out of scope for this service.
type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context) ([]Event, error)
}

type consentKey struct{}

// WithConsent marks the request context with the visitor's consent signal.
// Absent marking means consent is granted; attribution capture itself is
// never consent-gated, only event recording is.
func WithConsent(ctx context.Context, granted bool) context.Context {
	return context.WithValue(ctx, consentKey{}, granted)
}

// ConsentFrom reads the consent signal, defaulting to granted.
func ConsentFrom(ctx context.Context) bool {
	if v, ok := ctx.Value(consentKey{}).(bool); ok {
		return v
	}
	return true
}
