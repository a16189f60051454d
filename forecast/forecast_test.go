package forecast

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-salesforecaster/feature"
	"github.com/aouyang1/go-salesforecaster/forecast/options"
	"github.com/aouyang1/go-salesforecaster/models"
	"github.com/aouyang1/go-salesforecaster/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthStarts(start time.Time, n int) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.AddDate(0, i, 0))
	}
	return t
}

func pointValues(points []models.ForecastPoint) []float64 {
	res := make([]float64, 0, len(points))
	for _, p := range points {
		res = append(res, p.Value)
	}
	return res
}

func TestForecastLinear(t *testing.T) {
	tSeries := monthStarts(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 12)
	y := timedataset.GenerateLinearY(12, 100, 5)

	f, err := New(nil)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))

	assert.InDelta(t, 100.0, f.Intercept(), 1e-6)
	coef, err := f.Coefficients()
	require.Nil(t, err)
	assert.InDelta(t, 55.0, coef[feature.Linear().String()], 1e-6)

	eq, err := f.ModelEq()
	require.Nil(t, err)
	assert.Equal(t, "y ~ 100.00+55.00*growth_linear", eq)

	points, err := f.Predict(3)
	require.Nil(t, err)
	require.Len(t, points, 3)
	assert.InDeltaSlice(t, []float64{160, 165, 170}, pointValues(points), 1e-6)

	expectedT := []time.Time{
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	for i, p := range points {
		assert.Equal(t, expectedT[i], p.T)
		assert.InDelta(t, p.Value, p.Upper, 1e-6)
		assert.InDelta(t, p.Value, p.Lower, 1e-6)
	}

	scores := f.Scores()
	assert.InDelta(t, 1.0, scores.R2, 1e-9)
	assert.InDelta(t, 0.0, scores.MSE, 1e-9)
	assert.Len(t, f.Residuals(), 12)
	assert.Len(t, f.SeasonalityComponent(), 12)
	assert.InDeltaSlice(t, []float64(y), f.TrendComponent(), 1e-6)
}

func TestForecastSeasonality(t *testing.T) {
	n := 36
	tSeries := monthStarts(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), n)
	y := timedataset.GenerateLinearY(n, 1000, 10).
		Add(timedataset.GenerateYearlyWaveY(tSeries, 50, 1, 0))

	f, err := New(nil)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))

	coef, err := f.Coefficients()
	require.Nil(t, err)
	assert.InDelta(t, 50.0, coef[feature.NewSeasonality(options.LabelSeasYearly, feature.FourierCompSin, 1).String()], 1e-6)
	assert.InDelta(t, 0.0, coef[feature.NewSeasonality(options.LabelSeasYearly, feature.FourierCompCos, 2).String()], 1e-6)
	assert.InDelta(t, 1.0, f.Scores().R2, 1e-9)

	points, err := f.Predict(12)
	require.Nil(t, err)

	future := make([]time.Time, 0, len(points))
	for _, p := range points {
		future = append(future, p.T)
	}
	expected := timedataset.GenerateLinearY(12, 1000+10*float64(n), 10).
		Add(timedataset.GenerateYearlyWaveY(future, 50, 1, 0))
	assert.InDeltaSlice(t, []float64(expected), pointValues(points), 1e-6)

	seas := f.SeasonalityComponent()
	assert.InDeltaSlice(t, []float64(timedataset.GenerateYearlyWaveY(tSeries, 50, 1, 0)), seas, 1e-6)
}

func TestForecastMonthEvent(t *testing.T) {
	n := 24
	tSeries := monthStarts(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), n)
	promo := timedataset.GenerateConstY(n, 0).SetConst(
		tSeries, 80,
		time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC),
	)
	y := timedataset.GenerateLinearY(n, 200, 2).Add(promo)

	testData := map[string]struct {
		recur bool
		march float64
	}{
		"recurs in forecast":    {recur: true, march: 332},
		"no recurring forecast": {recur: false, march: 252},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := options.NewDefaultOptions()
			opt.SeasonalityOptions.YearlyOrders = 0
			opt.EventOptions.Events = []options.MonthEvent{
				options.NewMonthEvent("promo_marco", time.March, td.recur, 2022),
			}

			f, err := New(opt)
			require.Nil(t, err)
			require.Nil(t, f.Fit(tSeries, y))

			coef, err := f.Coefficients()
			require.Nil(t, err)
			assert.InDelta(t, 80.0, coef[feature.NewEvent("promo_marco").String()], 1e-6)

			points, err := f.Predict(3)
			require.Nil(t, err)
			assert.InDeltaSlice(t, []float64{248, 250, td.march}, pointValues(points), 1e-6)
			assert.Equal(t, time.March, points[2].T.Month())

			assert.InDelta(t, 80.0, f.EventComponent()[14], 1e-6)
		})
	}
}

func TestForecastInactiveEventDropped(t *testing.T) {
	tSeries := monthStarts(time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), 6)
	opt := options.NewDefaultOptions()
	opt.EventOptions.Events = []options.MonthEvent{
		options.NewMonthEvent("promo_marco", time.March, true),
	}

	f, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, timedataset.GenerateLinearY(6, 10, 1)))

	labels := f.FeatureLabels()
	require.Len(t, labels, 1)
	assert.Equal(t, feature.Linear().String(), labels[0].String())
}

func TestForecastOutliers(t *testing.T) {
	n := 24
	tSeries := monthStarts(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), n)
	y := timedataset.GenerateLinearY(n, 100, 1)
	y[10] += 500

	opt := options.NewDefaultOptions()
	opt.SeasonalityOptions.YearlyOrders = 0
	opt.OutlierOptions = options.OutlierOptions{
		NumPasses:       2,
		LowerPercentile: 0.25,
		UpperPercentile: 0.75,
		TukeyFactor:     1.5,
	}

	f, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))

	assert.Equal(t, []time.Time{tSeries[10]}, f.Outliers())
	assert.InDelta(t, 100.0, f.Intercept(), 1e-6)
	assert.InDelta(t, 0.0, f.ResidualStdDev(), 1e-6)

	residuals := f.Residuals()
	assert.InDelta(t, 500.0, residuals[10], 1e-6)
	assert.Less(t, f.Scores().R2, 1.0)

	m, err := f.Model()
	require.Nil(t, err)
	assert.Equal(t, n-1, m.NumTrain)
}

func TestForecastBounds(t *testing.T) {
	n := 12
	tSeries := monthStarts(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), n)
	y := timedataset.GenerateLinearY(n, 100, 5)
	for i := range y {
		if i%2 == 0 {
			y[i] += 3
		} else {
			y[i] -= 3
		}
	}

	narrow := options.NewDefaultOptions()
	narrow.IntervalWidth = 0.5
	wide := options.NewDefaultOptions()
	wide.IntervalWidth = 0.95

	fNarrow, err := New(narrow)
	require.Nil(t, err)
	require.Nil(t, fNarrow.Fit(tSeries, y))
	fWide, err := New(wide)
	require.Nil(t, err)
	require.Nil(t, fWide.Fit(tSeries, y))

	narrowPoints, err := fNarrow.Predict(4)
	require.Nil(t, err)
	widePoints, err := fWide.Predict(4)
	require.Nil(t, err)

	assert.Greater(t, fNarrow.ResidualStdDev(), 0.0)
	for k := range narrowPoints {
		nWidth := narrowPoints[k].Upper - narrowPoints[k].Value
		wWidth := widePoints[k].Upper - widePoints[k].Value
		assert.Greater(t, nWidth, 0.0)
		assert.Greater(t, wWidth, nWidth)
		assert.InDelta(t, nWidth, narrowPoints[k].Value-narrowPoints[k].Lower, 1e-9)
		if k > 0 {
			prev := narrowPoints[k-1].Upper - narrowPoints[k-1].Value
			assert.Greater(t, nWidth, prev)
		}
	}
}

func TestForecastErrors(t *testing.T) {
	var nilForecast *Forecast
	assert.ErrorIs(t, nilForecast.Fit(nil, nil), ErrUninitializedForecast)
	_, err := nilForecast.Predict(1)
	assert.ErrorIs(t, err, ErrUninitializedForecast)

	f, err := New(nil)
	require.Nil(t, err)

	_, err = f.Predict(1)
	assert.ErrorIs(t, err, ErrUntrainedForecast)
	_, err = f.Model()
	assert.ErrorIs(t, err, ErrUntrainedForecast)

	err = f.Fit([]time.Time{time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}, []float64{5})
	assert.ErrorIs(t, err, ErrInsufficientTrainingData)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	err = f.Fit(
		monthStarts(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 3),
		[]float64{1, math.NaN(), math.NaN()},
	)
	assert.ErrorIs(t, err, ErrInsufficientTrainingData)

	require.Nil(t, f.Fit(monthStarts(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 3), []float64{1, 2, 3}))
	_, err = f.Predict(0)
	assert.ErrorIs(t, err, models.ErrInvalidHorizon)

	_, err = New(&options.Options{IntervalWidth: 2})
	assert.ErrorIs(t, err, options.ErrInvalidIntervalWidth)
}

func TestForecastUnderdetermined(t *testing.T) {
	tSeries := monthStarts(time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC), 2)
	opt := options.NewDefaultOptions()
	opt.EventOptions.Events = []options.MonthEvent{
		options.NewMonthEvent("promo_marco", time.March, true, 2022),
	}

	f, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, []float64{10, 30}))

	points, err := f.Predict(2)
	require.Nil(t, err)
	for _, p := range points {
		assert.False(t, math.IsNaN(p.Value))
	}
}

func TestForecastModelRoundTrip(t *testing.T) {
	n := 30
	tSeries := monthStarts(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), n)
	y := timedataset.GenerateLinearY(n, 500, -3).
		Add(timedataset.GenerateYearlyWaveY(tSeries, 20, 2, 0.5))
	y[7] += 4

	opt := options.NewDefaultOptions()
	opt.EventOptions.Events = []options.MonthEvent{
		options.NewMonthEvent("promo_marco", time.March, true, 2022),
	}

	f, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))

	m, err := f.Model()
	require.Nil(t, err)

	data, err := MarshalModel(m)
	require.Nil(t, err)

	decoded, err := UnmarshalModel(data)
	require.Nil(t, err)

	restored, err := NewFromModel(decoded)
	require.Nil(t, err)

	expected, err := f.Predict(6)
	require.Nil(t, err)
	actual, err := restored.Predict(6)
	require.Nil(t, err)
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.Equal(t, expected[i].T, actual[i].T)
		assert.InDelta(t, expected[i].Value, actual[i].Value, 1e-9)
		assert.InDelta(t, expected[i].Upper, actual[i].Upper, 1e-9)
		assert.InDelta(t, expected[i].Lower, actual[i].Lower, 1e-9)
	}

	_, err = UnmarshalModel([]byte("{"))
	assert.NotNil(t, err)
}

func TestModelTablePrint(t *testing.T) {
	tSeries := monthStarts(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 6)
	f, err := New(nil)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, timedataset.GenerateLinearY(6, 10, 2)))

	m, err := f.Model()
	require.Nil(t, err)

	var buf bytes.Buffer
	require.Nil(t, m.TablePrint(&buf, "", "  "))
	out := buf.String()
	assert.Contains(t, out, "Training: 2023-01 to 2023-06, 6 months")
	assert.Contains(t, out, "Scores:")
	assert.Contains(t, out, "Weights:")
	assert.True(t, strings.Contains(out, "name=linear"))
}

func TestFitter(t *testing.T) {
	fitter, err := NewFitter(nil)
	require.Nil(t, err)

	var _ models.Fitter = fitter
	var _ models.Model = &Forecast{}

	td, err := timedataset.NewMonthlyDataset(
		monthStarts(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 4),
		[]float64{10, 20, 30, 40},
	)
	require.Nil(t, err)

	m, err := fitter.Fit(td)
	require.Nil(t, err)
	points, err := m.Predict(3)
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{50, 60, 70}, pointValues(points), 1e-6)

	_, err = fitter.Fit(nil)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = NewFitter(&options.Options{IntervalWidth: 0})
	assert.ErrorIs(t, err, options.ErrInvalidIntervalWidth)
}
