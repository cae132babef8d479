package metrics

import (
	"trackway/internal/tracks"
)

// Query composes predicates by intersection, mirroring scope chaining: each
// added predicate narrows the record set.
type Query struct {
	preds []Predicate
}

// NewQuery creates a query from the given predicates.
func NewQuery(preds ...Predicate) Query {
	return Query{preds: preds}
}

// Where returns a new query with an additional predicate. The receiver is
// not modified.
func (q Query) Where(p Predicate) Query {
	combined := make([]Predicate, 0, len(q.preds)+1)
	combined = append(combined, q.preds...)
	combined = append(combined, p)
	return Query{preds: combined}
}

// Matches reports whether a track satisfies every predicate.
func (q Query) Matches(t *tracks.Track) bool {
	for _, p := range q.preds {
		if !p(t) {
			return false
		}
	}
	return true
}

// Apply filters a record set down to the tracks matching every predicate.
func (q Query) Apply(records []tracks.Track) []tracks.Track {
	var result []tracks.Track
	for i := range records {
		if q.Matches(&records[i]) {
			result = append(result, records[i])
		}
	}
	return result
}

// Count returns the number of matching tracks.
func (q Query) Count(records []tracks.Track) int {
	count := 0
	for i := range records {
		if q.Matches(&records[i]) {
			count++
		}
	}
	return count
}

// CountDistinctVisitors returns the number of distinct non-empty visitor IDs
// among matching tracks. This is the counting mode of the visitors projection
// and the visitor-grouped scopes (repeat_visitors, return_visitors).
func (q Query) CountDistinctVisitors(records []tracks.Track) int {
	seen := make(map[string]struct{})
	for i := range records {
		if records[i].VisitorID == "" {
			continue
		}
		if q.Matches(&records[i]) {
			seen[records[i].VisitorID] = struct{}{}
		}
	}
	return len(seen)
}

// DistinctVisitors lists the distinct non-empty visitor IDs among matching
// tracks, in first-seen order.
func (q Query) DistinctVisitors(records []tracks.Track) []string {
	seen := make(map[string]struct{})
	var ids []string
	for i := range records {
		id := records[i].VisitorID
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if q.Matches(&records[i]) {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
