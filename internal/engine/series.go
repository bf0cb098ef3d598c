package engine

import (
	"sort"
	"time"

	"github.com/smukkama/health-correlation-server/internal/database"
	"github.com/smukkama/health-correlation-server/internal/protocol"
)

// DatedPair is one point of the joined series: a date with a possibly-absent
// observation on each side.
type DatedPair struct {
	Date time.Time
	X    float64
	Y    float64
	HasX bool
	HasY bool
}

// Reconstruct joins stored metric records into an ascending dated (x, y)
// sequence. Records are grouped by their exact date; if more than one record
// exists for the same (date, type) — a data anomaly the store's unique key
// should prevent — the maximum value wins. Returns a NoDataError when the
// user has no records for either of the two types.
func Reconstruct(records []database.MetricRecord, userID int64, xType, yType protocol.DataType) ([]DatedPair, error) {
	joined := make(map[int64]*DatedPair)
	var sawX, sawY bool

	for _, r := range records {
		key := r.Date.Unix()
		pair, ok := joined[key]
		if !ok {
			pair = &DatedPair{Date: r.Date}
			joined[key] = pair
		}

		switch protocol.DataType(r.DataType) {
		case xType:
			if !pair.HasX || r.Value > pair.X {
				pair.X = r.Value
				pair.HasX = true
			}
			sawX = true
		case yType:
			if !pair.HasY || r.Value > pair.Y {
				pair.Y = r.Value
				pair.HasY = true
			}
			sawY = true
		}
	}

	if !sawX || !sawY {
		return nil, &NoDataError{UserID: userID, XType: string(xType), YType: string(yType)}
	}

	series := make([]DatedPair, 0, len(joined))
	for _, pair := range joined {
		series = append(series, *pair)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})

	return series, nil
}
