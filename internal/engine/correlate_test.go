package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xy(d int, x, y float64) DatedPair {
	return DatedPair{Date: day(d), X: x, Y: y, HasX: true, HasY: true}
}

func xOnly(d int, x float64) DatedPair {
	return DatedPair{Date: day(d), X: x, HasX: true}
}

func yOnly(d int, y float64) DatedPair {
	return DatedPair{Date: day(d), Y: y, HasY: true}
}

func TestResample_IntroducesGapDays(t *testing.T) {
	series := []DatedPair{
		xy(1, 70, 2000),
		xy(4, 74, 2100),
	}

	daily := Resample(series)
	require.Len(t, daily, 4)

	assert.True(t, daily[1].Date.Equal(day(2)))
	assert.False(t, daily[1].HasX)
	assert.False(t, daily[1].HasY)
	assert.False(t, daily[2].HasX)
	assert.False(t, daily[2].HasY)

	assert.Equal(t, 70.0, daily[0].X)
	assert.Equal(t, 2100.0, daily[3].Y)
}

func TestResample_AveragesSameDayReadings(t *testing.T) {
	morning := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)

	series := []DatedPair{
		{Date: morning, X: 70, HasX: true},
		{Date: evening, X: 80, HasX: true, Y: 2000, HasY: true},
	}

	daily := Resample(series)
	require.Len(t, daily, 1)
	assert.Equal(t, 75.0, daily[0].X)
	assert.Equal(t, 2000.0, daily[0].Y)
}

func TestImpute_ColumnMean(t *testing.T) {
	// x observed on days 1 and 3 only; the day-2 gap gets the column mean
	// of the present x values, not an interpolation.
	series := []DatedPair{
		xy(1, 70, 2000),
		yOnly(2, 2100),
		xy(3, 74, 1900),
	}

	xs, ys := Impute(Resample(series))
	require.Len(t, xs, 3)

	assert.Equal(t, 72.0, xs[1]) // mean(70, 74)
	assert.Equal(t, []float64{2000, 2100, 1900}, ys)
}

func TestCorrelate_RoundTripPositive(t *testing.T) {
	series := []DatedPair{
		xy(1, 70, 2000),
		xy(2, 72, 2100),
		xy(3, 68, 1900),
	}

	result, err := Correlate(series)
	require.NoError(t, err)

	assert.Greater(t, result.Coefficient, 0.9)
	assert.Equal(t, 3, result.SampleDays)
	assert.GreaterOrEqual(t, result.PValue, 0.0)
	assert.LessOrEqual(t, result.PValue, 1.0)
}

func TestCorrelate_PerfectCorrelation(t *testing.T) {
	series := []DatedPair{
		xy(1, 1, 2),
		xy(2, 2, 4),
		xy(3, 3, 6),
		xy(4, 4, 8),
	}

	result, err := Correlate(series)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Coefficient, 1e-12)
	assert.InDelta(t, 0.0, result.PValue, 1e-12)
}

func TestCorrelate_KnownPValue(t *testing.T) {
	// n=3: the t statistic has 1 degree of freedom (a Cauchy), so
	// x=[1,2,3], y=[1,2,2] gives r=sqrt(3)/2 and p exactly 1/3.
	series := []DatedPair{
		xy(1, 1, 1),
		xy(2, 2, 2),
		xy(3, 3, 2),
	}

	result, err := Correlate(series)
	require.NoError(t, err)
	assert.InDelta(t, 0.8660254, result.Coefficient, 1e-6)
	assert.InDelta(t, 1.0/3.0, result.PValue, 1e-6)
}

func TestCorrelate_TooFewDays(t *testing.T) {
	series := []DatedPair{
		xy(1, 70, 2000),
		xy(2, 72, 2100),
	}

	_, err := Correlate(series)

	var degenerate *DegenerateSeriesError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, 2, degenerate.Days)
}

func TestCorrelate_ZeroVariance(t *testing.T) {
	series := []DatedPair{
		xy(1, 70, 2000),
		xy(2, 70, 2100),
		xy(3, 70, 1900),
	}

	_, err := Correlate(series)

	var degenerate *DegenerateSeriesError
	require.ErrorAs(t, err, &degenerate)
}

func TestCorrelate_GapDaysImputedNotNaN(t *testing.T) {
	// A middle day absent in both columns is introduced by resampling and
	// imputed in both, never propagated as NaN.
	series := []DatedPair{
		xy(1, 70, 2000),
		xy(3, 74, 2200),
		xy(4, 68, 1900),
	}

	result, err := Correlate(series)
	require.NoError(t, err)
	assert.Equal(t, 4, result.SampleDays)
	assert.False(t, result.Coefficient != result.Coefficient, "coefficient is NaN")
}

func TestResample_Empty(t *testing.T) {
	assert.Nil(t, Resample(nil))
}
