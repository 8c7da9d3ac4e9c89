package attribution

import (
	"encoding/json"
	"time"
)

// Record is the marketing-source tag set captured on a visitor's first
// qualifying visit.
//
// Invariants:
// - First-touch: once a non-empty record is durably stored for a visitor it
//   is never overwritten; later campaign links are ignored.
// - Records are created once and never mutated. They disappear only when
//   the stores expire or are cleared externally.
type Record struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`

	// Fallback marks records derived from the referrer rather than an
	// explicit campaign tag.
	Fallback bool `json:"fallback"`

	FirstVisitAt     time.Time `json:"first_visit_at"`
	FirstLandingPage string    `json:"first_landing_page,omitempty"`
}

// IsZero reports whether the record carries no attribution signal at all.
func (r Record) IsZero() bool {
	return r.Source == "" && r.Medium == "" && r.Campaign == "" && r.Term == "" && r.Content == ""
}

// Encode serializes the record for storage. Both stores receive this exact
// form so a backup copy can be adopted verbatim.
func (r Record) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a stored value. Corrupt or empty values read as absent:
// a damaged store degrades to "no attribution", it never fails the caller.
func Decode(raw string) (Record, bool) {
	if raw == "" {
		return Record{}, false
	}
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Record{}, false
	}
	if r.IsZero() {
		return Record{}, false
	}
	return r, true
}
