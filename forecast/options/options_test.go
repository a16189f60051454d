package options

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-salesforecaster/feature"
	"github.com/aouyang1/go-salesforecaster/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt *Options
		err error
	}{
		"nil uses default": {opt: nil},
		"negative regularization": {
			opt: &Options{Regularization: -1, IntervalWidth: 0.7},
			err: ErrNegativeRegularization,
		},
		"interval width of one": {
			opt: &Options{IntervalWidth: 1},
			err: ErrInvalidIntervalWidth,
		},
		"nan interval width": {
			opt: &Options{IntervalWidth: math.NaN()},
			err: ErrInvalidIntervalWidth,
		},
		"too many yearly orders": {
			opt: &Options{
				IntervalWidth:      0.7,
				SeasonalityOptions: SeasonalityOptions{YearlyOrders: 7},
			},
			err: ErrInvalidSeasonalityOrders,
		},
		"event without name": {
			opt: &Options{
				IntervalWidth: 0.7,
				EventOptions:  EventOptions{Events: []MonthEvent{{Month: time.March}}},
			},
			err: ErrNoEventName,
		},
		"event with bad month": {
			opt: &Options{
				IntervalWidth: 0.7,
				EventOptions:  EventOptions{Events: []MonthEvent{{Name: "promo", Month: 13}}},
			},
			err: ErrInvalidEventMonth,
		},
		"duplicate events": {
			opt: &Options{
				IntervalWidth: 0.7,
				EventOptions: EventOptions{Events: []MonthEvent{
					NewMonthEvent("promo marco", time.March, true),
					NewMonthEvent("Promo_Marco", time.April, true),
				}},
			},
			err: ErrDuplicateEventName,
		},
		"bad outlier percentiles": {
			opt: &Options{
				IntervalWidth:  0.7,
				OutlierOptions: OutlierOptions{NumPasses: 1, LowerPercentile: 0.9, UpperPercentile: 0.1},
			},
			err: ErrInvalidOutlierOptions,
		},
		"outlier percentiles ignored without passes": {
			opt: &Options{
				IntervalWidth:  0.7,
				OutlierOptions: OutlierOptions{LowerPercentile: 0.9, UpperPercentile: 0.1},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			require.NotNil(t, opt)
			if td.opt == nil {
				assert.Equal(t, NewDefaultOptions(), opt)
			}
		})
	}
}

func monthlyTimes(start time.Time, n int) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.AddDate(0, i, 0))
	}
	return t
}

func TestGenerateFeatures(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	promo := NewMonthEvent("promo_marco", time.March, true, 2022)

	testData := map[string]struct {
		n           int
		opt         *Options
		numFeatures int
		seasonality bool
	}{
		"short series has no seasonality": {
			n: 12,
			opt: &Options{
				IntervalWidth:      0.7,
				SeasonalityOptions: NewDefaultSeasonalityOptions(),
			},
			numFeatures: 1,
		},
		"two years has seasonality": {
			n: 24,
			opt: &Options{
				IntervalWidth:      0.7,
				SeasonalityOptions: NewDefaultSeasonalityOptions(),
			},
			numFeatures: 7,
			seasonality: true,
		},
		"max orders skip degenerate sine": {
			n: 36,
			opt: &Options{
				IntervalWidth:      0.7,
				SeasonalityOptions: SeasonalityOptions{YearlyOrders: 6},
			},
			numFeatures: 12,
			seasonality: true,
		},
		"lowered minimum months": {
			n: 12,
			opt: &Options{
				IntervalWidth:      0.7,
				SeasonalityOptions: SeasonalityOptions{YearlyOrders: 1, MinMonths: 12},
			},
			numFeatures: 3,
			seasonality: true,
		},
		"events": {
			n: 12,
			opt: &Options{
				IntervalWidth: 0.7,
				EventOptions:  EventOptions{Events: []MonthEvent{promo}},
			},
			numFeatures: 2,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			tSeries := monthlyTimes(start, td.n)
			set := td.opt.GenerateFeatures(tSeries, tSeries[0], tSeries[len(tSeries)-1])
			assert.Len(t, set, td.numFeatures)
			assert.Equal(t, td.seasonality, len(set.Filter(feature.FeatureTypeSeasonality)) > 0)

			linear, exists := set[feature.Linear().String()]
			require.True(t, exists)
			assert.Equal(t, 0.0, linear.Data[0])
			assert.InDelta(t, 1.0, linear.Data[td.n-1], 1e-12)
		})
	}
}

func TestGenerateFeaturesExtrapolates(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	future := timedataset.FutureMonths(end, 2)

	opt := NewDefaultOptions()
	set := opt.GenerateFeatures(future, start, end)

	linear := set[feature.Linear().String()]
	assert.Equal(t, []float64{1.25, 1.5}, linear.Data)

	single := opt.GenerateFeatures([]time.Time{start}, start, start)
	assert.Len(t, single, 0)
}

func TestMonthEventActive(t *testing.T) {
	trainEnd := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	promo := NewMonthEvent("promo_marco", time.March, true, 2022)
	once := NewMonthEvent("launch", time.March, false, 2022)
	every := NewMonthEvent("holiday", time.December, false)

	testData := map[string]struct {
		ev       MonthEvent
		t        time.Time
		expected bool
	}{
		"listed year":               {promo, time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), true},
		"unlisted year in sample":   {promo, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), false},
		"other month":               {promo, time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC), false},
		"recurs in forecast":        {promo, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), true},
		"no recurrence in forecast": {once, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), false},
		"all years in sample":       {every, time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC), true},
		"training end month":        {every, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.ev.Active(td.t, trainEnd))
		})
	}
}

func TestHolidayEvents(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

	events := Christmas(start, end)
	require.Len(t, events, 1)
	assert.Equal(t, time.December, events[0].Month)
	assert.Equal(t, []int{2021, 2022, 2023}, events[0].Years)
	assert.True(t, events[0].RecurInForecast)
	assert.Nil(t, events[0].Valid())

	events = Thanksgiving(start, end)
	require.Len(t, events, 1)
	assert.Equal(t, time.November, events[0].Month)

	assert.Nil(t, HolidayEvents(nil, start, end, true))
}

func TestTablePrint(t *testing.T) {
	opt := NewDefaultOptions()
	opt.EventOptions.Events = []MonthEvent{NewMonthEvent("promo_marco", time.March, true, 2022)}
	opt.OutlierOptions.NumPasses = 2

	var buf bytes.Buffer
	require.Nil(t, opt.TablePrint(&buf, "", "  ", 1))
	out := buf.String()
	assert.Contains(t, out, "Regularization: 0.000")
	assert.Contains(t, out, "Seasonality: yearly, 3 orders, min 24 months")
	assert.Contains(t, out, "Outlier Removal: 2 passes")
	assert.Contains(t, out, "promo_marco")
	assert.Contains(t, out, "March")

	buf.Reset()
	empty := &Options{IntervalWidth: 0.5}
	require.Nil(t, empty.TablePrint(&buf, "", "  ", 0))
	assert.Contains(t, buf.String(), "Seasonality: None")
	assert.Contains(t, buf.String(), "Events: None")
}
