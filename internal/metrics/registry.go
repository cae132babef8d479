package metrics

import (
	"trackway/internal/timeframe"
	"trackway/internal/tracks"
)

// Metric is one reportable entry of the registry: a row predicate, the
// counting mode, and how a time range composes with it.
type Metric struct {
	Name             string
	Predicate        Predicate
	DistinctVisitors bool // count distinct visitor IDs instead of rows
	BetweenMode      BetweenMode
}

// Registry maps metric names to their definitions. It is built once at
// startup and immutable afterwards; consumers receive it by reference.
type Registry struct {
	metrics []Metric
	byName  map[string]Metric
}

// filterNames is the full named-filter set in declaration order, including
// the structural scopes that are not reportable metrics.
var filterNames = []string{
	"scoped",
	"page_views",
	"visitors",
	"visits",
	"new_visitors",
	"repeat_visitors",
	"repeat_visits",
	"return_visitors",
	"return_visits",
	"entry_pages",
	"landing_pages",
	"exit_pages",
	"duration",
	"bounces",
	"opened_emails",
	"clicked_emails",
	"campaign",
	"source",
	"medium",
	"between",
	"by",
}

// nonMetricFilters are the structural/combinator scopes excluded from
// reporting UIs.
var nonMetricFilters = map[string]bool{
	"scoped":   true,
	"source":   true,
	"between":  true,
	"by":       true,
	"duration": true,
	"campaign": true,
	"medium":   true,
}

// NewRegistry builds the static metric registry.
func NewRegistry() *Registry {
	metrics := []Metric{
		{Name: "page_views", Predicate: PageViews()},
		{Name: "visitors", DistinctVisitors: true},
		{Name: "visits", Predicate: Visits()},
		{Name: "new_visitors", Predicate: NewVisitors()},
		{Name: "repeat_visitors", Predicate: RepeatVisits(), DistinctVisitors: true, BetweenMode: BetweenAfterRepeat},
		{Name: "repeat_visits", Predicate: RepeatVisits(), BetweenMode: BetweenAfterRepeat},
		{Name: "return_visitors", Predicate: ReturnVisits(), DistinctVisitors: true, BetweenMode: BetweenAfterReturn},
		{Name: "return_visits", Predicate: ReturnVisits(), BetweenMode: BetweenAfterReturn},
		{Name: "entry_pages", Predicate: EntryPages()},
		{Name: "landing_pages", Predicate: LandingPages()},
		{Name: "exit_pages", Predicate: ExitPages()},
		{Name: "bounces", Predicate: Bounces()},
		{Name: "opened_emails", Predicate: OpenedEmails()},
		{Name: "clicked_emails", Predicate: ClickedEmails()},
	}

	byName := make(map[string]Metric, len(metrics))
	for _, m := range metrics {
		byName[m.Name] = m
	}

	return &Registry{metrics: metrics, byName: byName}
}

// Lookup finds a reportable metric by name.
func (r *Registry) Lookup(name string) (Metric, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// AvailableMetrics returns the names of the reportable metrics: the full
// named-filter set minus the structural scopes. Stable across calls.
func (r *Registry) AvailableMetrics() []string {
	available := make([]string, 0, len(filterNames))
	for _, name := range filterNames {
		if !nonMetricFilters[name] {
			available = append(available, name)
		}
	}
	return available
}

// Count evaluates a metric over a record set, composing the optional time
// range per the metric's between mode.
func (r *Registry) Count(records []tracks.Track, m Metric, rng *timeframe.Range) int {
	q := NewQuery()
	if m.Predicate != nil {
		q = q.Where(m.Predicate)
	}
	q = q.Where(Between(rng, m.BetweenMode))

	if m.DistinctVisitors {
		return q.CountDistinctVisitors(records)
	}
	return q.Count(records)
}

// BounceRate is the ratio of single-view visits to session entries:
// count(bounces) / count(entry_pages), as float division. An empty
// entry-page set yields ErrEmptySet, consistent with Average.
func BounceRate(records []tracks.Track, rng *timeframe.Range) (float64, error) {
	bounces := NewQuery(Bounces(), Between(rng, BetweenPlain)).Count(records)
	entries := NewQuery(EntryPages(), Between(rng, BetweenPlain)).Count(records)
	if entries == 0 {
		return 0, ErrEmptySet
	}
	return float64(bounces) / float64(entries), nil
}
