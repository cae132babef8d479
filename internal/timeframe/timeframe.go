// Package timeframe provides inclusive time ranges and bucket truncation for
// time-series reporting.
package timeframe

import (
	"fmt"
	"time"
)

// Bucket is the granularity used when grouping tracks over time.
type Bucket string

const (
	BucketYear  Bucket = "year"
	BucketMonth Bucket = "month"
	BucketDay   Bucket = "day"
	BucketHour  Bucket = "hour"
)

// ParseBucket validates a bucket name coming from user input.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case BucketYear, BucketMonth, BucketDay, BucketHour:
		return Bucket(s), nil
	default:
		return "", fmt.Errorf("unknown bucket size: %s", s)
	}
}

// Range represents an inclusive period between two points in time.
type Range struct {
	From time.Time
	To   time.Time
}

// NewRange builds a validated range.
func NewRange(from, to time.Time) (*Range, error) {
	if from.After(to) {
		return nil, fmt.Errorf("from must be before to")
	}
	return &Range{From: from, To: to}, nil
}

// Contains reports whether t falls within the range, boundaries included.
func (r *Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// Duration returns the length of the range.
func (r *Range) Duration() time.Duration {
	return r.To.Sub(r.From)
}

// AppropriateBucket picks a sensible default granularity for a range,
// mirroring what reporting frontends expect for common window sizes.
func (r *Range) AppropriateBucket() Bucket {
	days := r.To.Sub(r.From).Hours() / 24

	switch {
	case days >= 5*365:
		return BucketYear
	case days >= 3*30:
		return BucketMonth
	case days >= 2:
		return BucketDay
	default:
		return BucketHour
	}
}

// TruncateToBucket truncates a time to the containing bucket boundary in UTC.
// Monthly buckets normalize to the first day of the month, yearly buckets to
// January 1st.
func TruncateToBucket(t time.Time, bucket Bucket) time.Time {
	utc := t.UTC()
	year, month, day := utc.Year(), utc.Month(), utc.Day()

	switch bucket {
	case BucketYear:
		return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	case BucketMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	case BucketDay:
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	case BucketHour:
		return time.Date(year, month, day, utc.Hour(), 0, 0, 0, time.UTC)
	default:
		return utc
	}
}

// NextBucket advances a bucket-aligned time to the start of the next bucket.
func NextBucket(t time.Time, bucket Bucket) time.Time {
	switch bucket {
	case BucketYear:
		return t.AddDate(1, 0, 0)
	case BucketMonth:
		return t.AddDate(0, 1, 0)
	case BucketDay:
		return t.AddDate(0, 0, 1)
	case BucketHour:
		return t.Add(time.Hour)
	default:
		return t
	}
}

// BucketStarts enumerates every bucket boundary covered by the range, in
// ascending order. Used to build gap-free time series (buckets with no data
// still appear with a zero count). Capped to keep pathological ranges from
// producing unbounded output.
func (r *Range) BucketStarts(bucket Bucket) []time.Time {
	const maxPoints = 1000

	var starts []time.Time
	current := TruncateToBucket(r.From, bucket)
	for !current.After(r.To) && len(starts) < maxPoints {
		starts = append(starts, current)
		current = NextBucket(current, bucket)
	}
	return starts
}
