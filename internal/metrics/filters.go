// Package metrics implements the named filter scopes and aggregation used to
// compute marketing and behavioral metrics over page-view tracks: bounce
// rate, new vs. repeat visitors, campaign attribution, and time-bucketed
// series. Filters are pure predicates composed by intersection; they carry no
// state and are safe for concurrent readers.
package metrics

import (
	"trackway/internal/timeframe"
	"trackway/internal/tracks"
)

// Predicate is a pure boolean filter over a single track.
type Predicate func(t *tracks.Track) bool

// PageViews matches non-outbound hits that recorded a URL.
func PageViews() Predicate {
	return func(t *tracks.Track) bool {
		return !t.Outbound && t.URL != ""
	}
}

// Visits matches the rows summarizing a completed visit (non-nil duration).
func Visits() Predicate {
	return func(t *tracks.Track) bool {
		return t.Duration != nil
	}
}

// HasDuration is the duration scope: rows carrying a visit duration.
func HasDuration() Predicate {
	return Visits()
}

// NewVisitors matches completed visits that were the visitor's first.
func NewVisitors() Predicate {
	return func(t *tracks.Track) bool {
		return t.VisitNumber == 1 && t.Duration != nil
	}
}

// RepeatVisits matches completed visits by visitors with a recorded previous
// session.
func RepeatVisits() Predicate {
	return func(t *tracks.Track) bool {
		return t.PreviousSessionAt != nil && t.Duration != nil
	}
}

// ReturnVisits matches completed visits by visitors past their first visit
// with a recorded previous session.
func ReturnVisits() Predicate {
	return func(t *tracks.Track) bool {
		return t.VisitNumber > 1 && t.PreviousSessionAt != nil && t.Duration != nil
	}
}

// EntryPages matches the first page viewed in a session.
func EntryPages() Predicate {
	return func(t *tracks.Track) bool {
		return t.ViewNumber == 1 && t.URL != ""
	}
}

// LandingPages matches entry pages carrying campaign attribution.
func LandingPages() Predicate {
	return func(t *tracks.Track) bool {
		return t.ViewNumber == 1 && t.URL != "" && t.CampaignName != ""
	}
}

// ExitPages matches the last page of a visit, which is the row the visit
// summary is written to.
func ExitPages() Predicate {
	return Visits()
}

// Bounces matches visits consisting of exactly one page view.
func Bounces() Predicate {
	return func(t *tracks.Track) bool {
		return t.Duration != nil && t.ViewNumber == 1
	}
}

// OpenedEmails matches tracking-pixel hits from campaign email opens.
func OpenedEmails() Predicate {
	return func(t *tracks.Track) bool {
		return t.CampaignName != "" && t.CampaignMedium == "email" && t.CampaignSource == "open"
	}
}

// ClickedEmails matches landing hits from campaign email click-throughs.
func ClickedEmails() Predicate {
	return func(t *tracks.Track) bool {
		return t.CampaignName != "" && t.CampaignMedium == "email" && t.CampaignSource == "landing"
	}
}

// Campaign matches tracks attributed to the named campaign.
func Campaign(name string) Predicate {
	return func(t *tracks.Track) bool {
		return t.CampaignName == name
	}
}

// Source matches tracks attributed to the given campaign source.
func Source(src string) Predicate {
	return func(t *tracks.Track) bool {
		return t.CampaignSource == src
	}
}

// Medium matches tracks attributed to the given campaign medium.
func Medium(med string) Predicate {
	return func(t *tracks.Track) bool {
		return t.CampaignMedium == med
	}
}

// BetweenMode selects how a time range composes with the visitor-recency
// scope it follows. The composition is parameterized explicitly rather than
// inferred from chain order.
type BetweenMode int

const (
	// BetweenPlain restricts tracked_at to the range and nothing else.
	BetweenPlain BetweenMode = iota
	// BetweenAfterRepeat additionally requires the previous session to fall
	// after the range start (the prior session is inside the query window).
	BetweenAfterRepeat
	// BetweenAfterReturn additionally requires the previous session to
	// predate the range start (the visitor is returning from before the
	// window).
	BetweenAfterReturn
)

// Between restricts tracked_at to an inclusive range. A nil range matches
// everything. The extra previous-session constraint of the repeat/return
// modes compares against the range start.
func Between(r *timeframe.Range, mode BetweenMode) Predicate {
	return func(t *tracks.Track) bool {
		if r == nil {
			return true
		}
		if !r.Contains(t.TrackedAt) {
			return false
		}
		switch mode {
		case BetweenAfterRepeat:
			return t.PreviousSessionAt != nil && t.PreviousSessionAt.After(r.From)
		case BetweenAfterReturn:
			return t.PreviousSessionAt != nil && t.PreviousSessionAt.Before(r.From)
		default:
			return true
		}
	}
}
