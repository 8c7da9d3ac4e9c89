package attribution

import "time"

// Campaign parameter names recognized in landing page URLs.
const (
	ParamSource   = "utm_source"
	ParamMedium   = "utm_medium"
	ParamCampaign = "utm_campaign"
	ParamTerm     = "utm_term"
	ParamContent  = "utm_content"
)

// MediumReferral is the medium assigned to referrer-derived fallback records.
const MediumReferral = "referral"

// ResolveInput carries everything Resolve needs. ReferrerHost must already
// be cross-origin filtered by the caller; a same-origin referrer passed here
// would misattribute an internal navigation.
type ResolveInput struct {
	// Params are the landing page query parameters.
	Params map[string]string

	// Existing is the current durable record, if any.
	Existing *Record

	// Backup is the parsed backup-store record, if any.
	Backup *Record

	// ReferrerHost is the host of the inbound link, empty for direct visits.
	ReferrerHost string

	// LandingPage is the full URL of the page being entered.
	LandingPage string

	// Now stamps FirstVisitAt on newly built records.
	Now time.Time
}

// Resolve computes the authoritative attribution record for a page load.
//
// Precedence, first match wins:
//  1. An existing non-empty record is returned unchanged (first-touch).
//  2. Any recognized utm_* parameter builds a fresh tagged record.
//  3. A surviving backup record is adopted verbatim (recovery).
//  4. A cross-origin referrer builds a fallback record.
//  5. Otherwise nil: anonymous direct visit.
//
// Resolve is a pure function of its input. Calling it twice with the same
// input yields identical output, and once a record exists rule 1 makes
// every later call a no-op.
func Resolve(in ResolveInput) *Record {
	if in.Existing != nil && !in.Existing.IsZero() {
		return in.Existing
	}

	if hasCampaignParams(in.Params) {
		return &Record{
			Source:           in.Params[ParamSource],
			Medium:           in.Params[ParamMedium],
			Campaign:         in.Params[ParamCampaign],
			Term:             in.Params[ParamTerm],
			Content:          in.Params[ParamContent],
			Fallback:         false,
			FirstVisitAt:     in.Now,
			FirstLandingPage: in.LandingPage,
		}
	}

	if in.Backup != nil && !in.Backup.IsZero() {
		return in.Backup
	}

	if in.ReferrerHost != "" {
		src, _ := CanonicalSource(in.ReferrerHost)
		if src != "" {
			return &Record{
				Source:           src,
				Medium:           MediumReferral,
				Fallback:         true,
				FirstVisitAt:     in.Now,
				FirstLandingPage: in.LandingPage,
			}
		}
	}

	return nil
}

func hasCampaignParams(params map[string]string) bool {
	for _, k := range []string{ParamSource, ParamMedium, ParamCampaign, ParamTerm, ParamContent} {
		if params[k] != "" {
			return true
		}
	}
	return false
}
