package metrics

import (
	"errors"
	"fmt"
)

// ErrEmptySet indicates an average or rate computed over zero rows. Returned
// explicitly instead of producing NaN so every call site handles division by
// zero the same way.
var ErrEmptySet = errors.New("empty result set")

// Aggregate field names over grouped rows.
const (
	FieldCount    = "count"
	FieldDuration = "duration"
)

// Count returns the number of groups in a materialized result.
func Count(rows []Row) int {
	return len(rows)
}

// Sum totals the named aggregate across grouped rows. The field defaults to
// the count column every group carries.
func Sum(rows []Row, field ...string) (int, error) {
	name := FieldCount
	if len(field) > 0 {
		name = field[0]
	}

	total := 0
	for _, row := range rows {
		switch name {
		case FieldCount:
			total += row.Count
		case FieldDuration:
			total += row.Duration
		default:
			return 0, fmt.Errorf("unknown aggregate field: %s", name)
		}
	}
	return total, nil
}

// Average returns the arithmetic mean of the named aggregate across grouped
// rows, defaulting to count. An empty result set yields ErrEmptySet.
func Average(rows []Row, field ...string) (float64, error) {
	if len(rows) == 0 {
		return 0, ErrEmptySet
	}

	total, err := Sum(rows, field...)
	if err != nil {
		return 0, err
	}
	return float64(total) / float64(len(rows)), nil
}
