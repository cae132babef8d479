package timeframe

import (
	"fmt"
	"time"
)

// ParserParams carries the raw from/to strings from a report request.
type ParserParams struct {
	FromDate string
	ToDate   string
}

// ParseRange turns "2006-01-02" from/to strings into an inclusive UTC range.
// Missing dates default to the last 30 days. The end date is extended to the
// end of its day so a single-day range covers the whole day.
func ParseRange(params ParserParams) (*Range, error) {
	now := time.Now().UTC()

	from := now.Truncate(24 * time.Hour).AddDate(0, 0, -30)
	if params.FromDate != "" {
		parsed, err := time.Parse("2006-01-02", params.FromDate)
		if err != nil {
			return nil, fmt.Errorf("invalid 'from' date: %w", err)
		}
		from = parsed
	}

	to := now
	if params.ToDate != "" {
		parsed, err := time.Parse("2006-01-02", params.ToDate)
		if err != nil {
			return nil, fmt.Errorf("invalid 'to' date: %w", err)
		}
		to = parsed.Add(24*time.Hour - time.Second)
	}

	return NewRange(from, to)
}
