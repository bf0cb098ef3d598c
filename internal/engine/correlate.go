package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/smukkama/health-correlation-server/internal/protocol"
)

// CorrelationResult is the outcome of a successful computation.
type CorrelationResult struct {
	Coefficient float64
	PValue      float64
	SampleDays  int
}

type dayBucket struct {
	sumX   float64
	countX int
	sumY   float64
	countY int
}

// Resample converts the joined series into a contiguous daily calendar
// spanning the earliest to the latest date, inclusive. Days with no source
// data become rows with both sides absent. Multiple source rows mapping to
// the same calendar day are averaged per column.
func Resample(series []DatedPair) []DatedPair {
	if len(series) == 0 {
		return nil
	}

	buckets := make(map[int64]*dayBucket)
	first := protocol.DateOf(series[0].Date).Time
	last := first

	for _, pair := range series {
		day := protocol.DateOf(pair.Date).Time
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}

		key := day.Unix()
		bucket, ok := buckets[key]
		if !ok {
			bucket = &dayBucket{}
			buckets[key] = bucket
		}
		if pair.HasX {
			bucket.sumX += pair.X
			bucket.countX++
		}
		if pair.HasY {
			bucket.sumY += pair.Y
			bucket.countY++
		}
	}

	var daily []DatedPair
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		row := DatedPair{Date: day}
		if bucket, ok := buckets[day.Unix()]; ok {
			if bucket.countX > 0 {
				row.X = bucket.sumX / float64(bucket.countX)
				row.HasX = true
			}
			if bucket.countY > 0 {
				row.Y = bucket.sumY / float64(bucket.countY)
				row.HasY = true
			}
		}
		daily = append(daily, row)
	}

	return daily
}

// Impute replaces every absent value with the mean of the present values in
// the same column. This deliberately pulls sparse series toward the null
// hypothesis; the policy must not be changed without changing stored
// results.
func Impute(daily []DatedPair) (xs, ys []float64) {
	var sumX, sumY float64
	var countX, countY int
	for _, row := range daily {
		if row.HasX {
			sumX += row.X
			countX++
		}
		if row.HasY {
			sumY += row.Y
			countY++
		}
	}

	meanX := sumX / float64(countX)
	meanY := sumY / float64(countY)

	xs = make([]float64, len(daily))
	ys = make([]float64, len(daily))
	for i, row := range daily {
		xs[i] = meanX
		ys[i] = meanY
		if row.HasX {
			xs[i] = row.X
		}
		if row.HasY {
			ys[i] = row.Y
		}
	}

	return xs, ys
}

// Correlate resamples the joined series to a daily calendar, imputes missing
// values, and computes the Pearson coefficient with its two-sided p-value.
// Returns a DegenerateSeriesError instead of NaN when the statistic is
// undefined.
func Correlate(series []DatedPair) (*CorrelationResult, error) {
	daily := Resample(series)
	n := len(daily)

	if n < 3 {
		return nil, &DegenerateSeriesError{Reason: "fewer than 3 calendar days", Days: n}
	}

	var presentX, presentY int
	for _, row := range daily {
		if row.HasX {
			presentX++
		}
		if row.HasY {
			presentY++
		}
	}
	if presentX == 0 || presentY == 0 {
		return nil, &DegenerateSeriesError{Reason: "a column has no observed values", Days: n}
	}

	xs, ys := Impute(daily)

	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return nil, &DegenerateSeriesError{Reason: "zero variance after imputation", Days: n}
	}

	r := stat.Correlation(xs, ys, nil)

	return &CorrelationResult{
		Coefficient: r,
		PValue:      pValue(r, n),
		SampleDays:  n,
	}, nil
}

// pValue computes the two-sided p-value of the Pearson coefficient from the
// t-distribution with n-2 degrees of freedom.
func pValue(r float64, n int) float64 {
	nu := float64(n - 2)
	denom := 1 - r*r
	if denom <= 0 {
		// |r| = 1: the t statistic diverges
		return 0
	}

	t := r * math.Sqrt(nu/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nu}
	return 2 * dist.CDF(-math.Abs(t))
}
