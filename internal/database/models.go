package database

import (
	"time"
)

// MetricRecord is one stored observation, unique per
// (user_id, data_type, date). A later write for the same key replaces the
// value; no history is kept.
type MetricRecord struct {
	ID        int64
	UserID    int64
	DataType  string
	Date      time.Time // UTC midnight
	Value     float64
	UpdatedAt time.Time
}

// CorrelationRecord is the latest computed correlation for a user and an
// unordered pair of data types. The pair is stored in canonical order so
// (x, y) and (y, x) address the same row.
type CorrelationRecord struct {
	ID          int64
	UserID      int64
	XDataType   string
	YDataType   string
	Correlation float64
	PValue      float64
	SampleDays  int
	ComputedAt  time.Time
}

// CanonicalPair orders two data types lexicographically.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
