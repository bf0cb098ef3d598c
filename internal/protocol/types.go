package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// DataType identifies one of the tracked health metrics. The catalog is
// closed; adding a type is a schema change.
type DataType string

const (
	DataTypeAvgHeartbeat     DataType = "avg_heartbeat"
	DataTypeCaloriesConsumed DataType = "calories_consumed"
	DataTypeSleepHours       DataType = "sleep_hours"
	DataTypeMorningPulse     DataType = "morning_pulse"
)

var dataTypes = map[DataType]bool{
	DataTypeAvgHeartbeat:     true,
	DataTypeCaloriesConsumed: true,
	DataTypeSleepHours:       true,
	DataTypeMorningPulse:     true,
}

// Valid reports whether dt is part of the metric catalog.
func (dt DataType) Valid() bool {
	return dataTypes[dt]
}

// ParseDataType converts a string into a known DataType.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(s)
	if !dt.Valid() {
		return "", fmt.Errorf("unknown data type: %q", s)
	}
	return dt, nil
}

const dateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day component. It marshals as
// "YYYY-MM-DD" and is always anchored at UTC midnight.
type Date struct {
	time.Time
}

// NewDate creates a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	d.Time = t
	return nil
}

// MetricPoint is one observation of one metric for one day.
type MetricPoint struct {
	Date  Date    `json:"date"`
	Value float64 `json:"value"`
}
