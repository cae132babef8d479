package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"trackway/internal/timeframe"
	"trackway/internal/tracks"
)

// Row is one group produced by By: either a temporal bucket (Bucket set,
// truncated to the requested granularity) or a composite literal key, always
// carrying a count aggregate plus the summed visit duration of the group.
type Row struct {
	Bucket   time.Time         // zero unless a temporal field was requested
	Keys     map[string]string // literal field -> value
	Count    int
	Duration int // sum of visit durations in the group, seconds
}

// temporalFields maps by-field names to bucket granularities.
var temporalFields = map[string]timeframe.Bucket{
	"hour":  timeframe.BucketHour,
	"day":   timeframe.BucketDay,
	"month": timeframe.BucketMonth,
	"year":  timeframe.BucketYear,
}

// literalFields maps groupable field names to value extractors.
var literalFields = map[string]func(t *tracks.Track) string{
	"url":             func(t *tracks.Track) string { return t.URL },
	"visitor_id":      func(t *tracks.Track) string { return t.VisitorID },
	"session_id":      func(t *tracks.Track) string { return t.SessionID },
	"campaign_name":   func(t *tracks.Track) string { return t.CampaignName },
	"campaign_source": func(t *tracks.Track) string { return t.CampaignSource },
	"campaign_medium": func(t *tracks.Track) string { return t.CampaignMedium },
}

// By groups a record set by the given fields. A temporal field
// (hour/day/month/year) replaces tracked_at with its truncated bucket and
// groups by it; other fields group by literal value, combining into a
// composite key. At most one temporal field may be given. Rows come back in
// ascending bucket/key order.
func By(records []tracks.Track, fields ...string) ([]Row, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("by requires at least one field")
	}

	var bucket timeframe.Bucket
	temporal := false
	var literals []string

	for _, field := range fields {
		if b, ok := temporalFields[field]; ok {
			if temporal {
				return nil, fmt.Errorf("by accepts at most one temporal field, got %q and %q", bucket, b)
			}
			temporal = true
			bucket = b
			continue
		}
		if _, ok := literalFields[field]; !ok {
			return nil, fmt.Errorf("unknown group field: %s", field)
		}
		literals = append(literals, field)
	}

	groups := make(map[string]*Row)
	var order []string

	for i := range records {
		t := &records[i]

		row := Row{}
		keyParts := make([]string, 0, len(literals)+1)
		if temporal {
			row.Bucket = timeframe.TruncateToBucket(t.TrackedAt, bucket)
			keyParts = append(keyParts, row.Bucket.Format(time.RFC3339))
		}
		if len(literals) > 0 {
			row.Keys = make(map[string]string, len(literals))
			for _, field := range literals {
				value := literalFields[field](t)
				row.Keys[field] = value
				keyParts = append(keyParts, value)
			}
		}

		key := strings.Join(keyParts, "\x1f")
		existing, ok := groups[key]
		if !ok {
			groups[key] = &row
			existing = &row
			order = append(order, key)
		}
		existing.Count++
		if t.Duration != nil {
			existing.Duration += *t.Duration
		}
	}

	rows := make([]Row, 0, len(groups))
	for _, key := range order {
		rows = append(rows, *groups[key])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Bucket.Equal(rows[j].Bucket) {
			return rows[i].Bucket.Before(rows[j].Bucket)
		}
		return compositeKey(rows[i].Keys) < compositeKey(rows[j].Keys)
	})

	return rows, nil
}

func compositeKey(keys map[string]string) string {
	if len(keys) == 0 {
		return ""
	}
	fields := make([]string, 0, len(keys))
	for field := range keys {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, keys[field])
	}
	return strings.Join(parts, "\x1f")
}

// SeriesPoint is one entry of a gap-free bucketed time series.
type SeriesPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// BuildTimeSeries expands bucketed rows into a series covering every bucket
// of the range, filling missing buckets with zero counts.
func BuildTimeSeries(rows []Row, r *timeframe.Range, bucket timeframe.Bucket) []SeriesPoint {
	counts := make(map[time.Time]int, len(rows))
	for _, row := range rows {
		counts[row.Bucket] = row.Count
	}

	starts := r.BucketStarts(bucket)
	points := make([]SeriesPoint, len(starts))
	for i, start := range starts {
		points[i] = SeriesPoint{
			Date:  start.Format(time.RFC3339),
			Count: counts[start],
		}
	}
	return points
}
