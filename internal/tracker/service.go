package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/mehtameet005/utm-tracker/internal/attribution"
	"github.com/mehtameet005/utm-tracker/internal/identity"

	"github.com/google/uuid"
)

var (
	ErrInvalidEvent  = errors.New("tracker: invalid event")
	ErrNotConfigured = errors.New("tracker: service not configured")
)

// Service is the event recorder. It owns the orchestration order for a
// page load: resolve attribution, write it durably, then record the
// page_view with the freshly written snapshot. The order is explicit:
// recording first would snapshot a nil attribution that exists a moment
// later.
type Service struct {
	repo Repository
	sync *attribution.Synchronizer
	ids  *identity.Provider

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, sync *attribution.Synchronizer, ids *identity.Provider) *Service {
	return &Service{repo: repo, sync: sync, ids: ids, clock: time.Now}
}

// PageContext is what the page-load collaborator reports when a page is
// entered. Query holds the landing page's parsed query parameters;
// ReferrerHost must be empty for same-origin navigations.
type PageContext struct {
	PresentedIdentity string
	URL               string
	Query             map[string]string
	ReferrerHost      string
}

// PageView handles one "page entered" notification end to end and returns
// the recorded page_view event.
func (s *Service) PageView(ctx context.Context, pc PageContext) (Event, error) {
	if s.repo == nil || s.sync == nil || s.ids == nil {
		return Event{}, ErrNotConfigured
	}

	id, err := s.ids.Ensure(ctx, pc.PresentedIdentity)
	if err != nil {
		return Event{}, err
	}

	existing, err := s.sync.CurrentDurable(ctx, id)
	if err != nil {
		return Event{}, err
	}
	backup, err := s.sync.CurrentBackup(ctx, id)
	if err != nil {
		// The backup store is recovery-only; losing it must not block
		// the page load.
		backup = nil
	}

	resolved := attribution.Resolve(attribution.ResolveInput{
		Params:       pc.Query,
		Existing:     existing,
		Backup:       backup,
		ReferrerHost: pc.ReferrerHost,
		LandingPage:  pc.URL,
		Now:          s.clock().UTC(),
	})

	// Durable write completes before the page_view is stamped.
	if err := s.sync.Reconcile(ctx, id, resolved); err != nil {
		return Event{}, err
	}

	return s.record(ctx, id, EventTypePageView, pc.URL, nil, resolved)
}

// Record appends an interaction event for a visitor.
//
// When consent is withheld the event is still constructed and returned for
// inspection, but nothing is appended and nothing fires downstream.
// Suppression is a defined path, not an error.
func (s *Service) Record(ctx context.Context, visitorKey string, eventType EventType, pageURL string, details map[string]string) (Event, error) {
	if s.repo == nil || s.sync == nil || s.ids == nil {
		return Event{}, ErrNotConfigured
	}
	if eventType == "" {
		return Event{}, ErrInvalidEvent
	}

	id, err := s.ids.Ensure(ctx, visitorKey)
	if err != nil {
		return Event{}, err
	}
	snapshot, err := s.sync.CurrentDurable(ctx, id)
	if err != nil {
		return Event{}, err
	}
	return s.record(ctx, id, eventType, pageURL, details, snapshot)
}

func (s *Service) record(ctx context.Context, id string, eventType EventType, pageURL string, details map[string]string, snapshot *attribution.Record) (Event, error) {
	e := Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		Identity:    id,
		Attribution: snapshot,
		PageURL:     pageURL,
		Timestamp:   s.clock().UTC(),
		Details:     details,
	}
	if !ConsentFrom(ctx) {
		return e, nil
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Attribution returns the current durable record for a visitor, nil when
// none is determinable.
func (s *Service) Attribution(ctx context.Context, visitorKey string) (*attribution.Record, error) {
	if s.sync == nil {
		return nil, ErrNotConfigured
	}
	return s.sync.CurrentDurable(ctx, visitorKey)
}
