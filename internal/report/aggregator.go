package report

import (
	"context"
	"errors"

	"github.com/mehtameet005/utm-tracker/internal/tracker"
)

// Aggregate folds an event log into a Report in a single pass.
//
// The log must be in append order. Events sharing a timestamp keep that
// order; slice iteration is the tie-break, no re-sorting happens here.
// Per identity, the first event seen is the epoch; elapsed values are
// therefore monotonically non-decreasing.
//
// Aggregation never fails on a malformed event: a missing attribution
// counts under "unknown" and an empty identity still aggregates under the
// empty key, keeping TotalEvents == len(events) absolute.
func Aggregate(events []tracker.Event) Report {
	r := Report{
		SourceCounts: map[string]int{},
		FunnelCounts: map[tracker.EventType]int{},
		TimeMetrics:  map[string][]int64{},
		UserJourneys: map[string][]JourneyStep{},
	}

	epochs := map[string]int64{}

	for _, e := range events {
		r.TotalEvents++

		src := SourceUnknown
		if e.Attribution != nil && e.Attribution.Source != "" {
			src = e.Attribution.Source
		}
		r.SourceCounts[src]++

		r.FunnelCounts[e.Type]++

		ts := e.Timestamp.UnixMilli()
		epoch, seen := epochs[e.Identity]
		if !seen {
			epoch = ts
			epochs[e.Identity] = epoch
		}
		r.TimeMetrics[e.Identity] = append(r.TimeMetrics[e.Identity], ts-epoch)
		r.UserJourneys[e.Identity] = append(r.UserJourneys[e.Identity], JourneyStep{
			EventType: e.Type,
			Timestamp: e.Timestamp,
			PageURL:   e.PageURL,
		})
	}

	return r
}

// Service exposes aggregation over a stored event log for the HTTP read
// path.
type Service struct {
	repo tracker.Repository
}

func NewService(repo tracker.Repository) *Service { return &Service{repo: repo} }

// Generate reads the full log and aggregates it.
func (s *Service) Generate(ctx context.Context) (Report, error) {
	if s.repo == nil {
		return Report{}, errors.New("report: repository not configured")
	}
	events, err := s.repo.List(ctx)
	if err != nil {
		return Report{}, err
	}
	return Aggregate(events), nil
}
