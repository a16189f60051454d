package models

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-salesforecaster/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowthPercent(t *testing.T) {
	testData := map[string]struct {
		last     float64
		final    float64
		expected float64
		err      error
	}{
		"increase": {last: 40, final: 70, expected: 75.0},
		"decrease": {last: 200, final: 150, expected: -25.0},
		"flat":     {last: 50, final: 50, expected: 0.0},
		"negative baseline": {
			last: -10, final: -5, expected: -50.0,
		},
		"zero baseline": {last: 0, final: 10, err: ErrZeroBaseline},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := GrowthPercent(td.last, td.final)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.True(t, math.IsNaN(res))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, td.expected, res, 1e-9)
		})
	}
}

func TestGrowth(t *testing.T) {
	points := []ForecastPoint{
		{Value: 50}, {Value: 60}, {Value: 70},
	}

	res, err := Growth(40, points)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.InDelta(t, 75.0, *res, 1e-9)

	res, err = Growth(0, points)
	assert.ErrorIs(t, err, ErrZeroBaseline)
	assert.Nil(t, res)

	_, err = Growth(10, nil)
	assert.ErrorIs(t, err, ErrNoForecast)
}

func TestResultsRoundTrip(t *testing.T) {
	points := []ForecastPoint{
		{T: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Value: 10, Lower: 8, Upper: 12},
		{T: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Value: 11, Lower: 9, Upper: 13},
	}
	r := NewResults(points)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []float64{10, 11}, r.Forecast)
	assert.Equal(t, []float64{12, 13}, r.Upper)
	assert.Equal(t, []float64{8, 9}, r.Lower)
	assert.Equal(t, points, r.Points())

	var nilRes *Results
	assert.Equal(t, 0, nilRes.Len())
	assert.Nil(t, nilRes.Points())
}

type constModel float64

func (c constModel) Predict(periods int) ([]ForecastPoint, error) {
	points := make([]ForecastPoint, periods)
	for i := range points {
		points[i].Value = float64(c)
	}
	return points, nil
}

func TestFitterFunc(t *testing.T) {
	var f Fitter = FitterFunc(func(td *timedataset.TimeDataset) (Model, error) {
		last, _ := td.Last()
		return constModel(last.Value), nil
	})

	td, err := timedataset.NewUnivariateDataset(
		[]time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		[]float64{7},
	)
	require.NoError(t, err)

	m, err := f.Fit(td)
	require.NoError(t, err)
	points, err := m.Predict(2)
	require.NoError(t, err)
	assert.Equal(t, 7.0, points[1].Value)
}
