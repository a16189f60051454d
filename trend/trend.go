// Package trend extrapolates a monthly series along the mean of its successive differences
// with a symmetric band derived from the spread of those differences.
package trend

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-salesforecaster/models"
	"github.com/aouyang1/go-salesforecaster/timedataset"
	"gonum.org/v1/gonum/stat"
)

const DefaultConfidence = 0.7

var (
	ErrInsufficientData  = models.ErrInsufficientData
	ErrInvalidConfidence = errors.New("confidence must be within [0, 1]")
)

// Options configures the linear trend forecaster
type Options struct {
	// Confidence scales the band as stddev(diffs) * (1 - Confidence). A confidence of 1
	// collapses the band onto the point forecast.
	Confidence float64 `json:"confidence"`
}

// NewDefaultOptions returns the default linear trend options
func NewDefaultOptions() *Options {
	return &Options{
		Confidence: DefaultConfidence,
	}
}

// Validate checks the options, substituting the defaults if none are provided
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if math.IsNaN(o.Confidence) || o.Confidence < 0 || o.Confidence > 1 {
		return nil, fmt.Errorf("got %v, %w", o.Confidence, ErrInvalidConfidence)
	}
	return o, nil
}

// LinearTrend fits a constant monthly rate of change
type LinearTrend struct {
	opt *Options
}

// New creates a linear trend forecaster. If no options are provided a default is used.
func New(opt *Options) (*LinearTrend, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &LinearTrend{opt: opt}, nil
}

// Fit computes the rate and spread of the series differences
func (l *LinearTrend) Fit(td *timedataset.TimeDataset) (models.Model, error) {
	if td.Len() < 2 {
		return nil, fmt.Errorf("got %d observations, %w", td.Len(), ErrInsufficientData)
	}

	diffs := make([]float64, 0, len(td.Y)-1)
	for i := 1; i < len(td.Y); i++ {
		diffs = append(diffs, td.Y[i]-td.Y[i-1])
	}
	rate, stddev := stat.PopMeanStdDev(diffs, nil)

	last, _ := td.Last()
	return &Model{
		Rate:       rate,
		Spread:     stddev * (1.0 - l.opt.Confidence),
		Confidence: l.opt.Confidence,
		Last:       last,
	}, nil
}

// Model is a fitted linear trend
type Model struct {
	Rate       float64                 `json:"rate"`
	Spread     float64                 `json:"spread"`
	Confidence float64                 `json:"confidence"`
	Last       timedataset.Observation `json:"last_observation"`
}

// Predict extrapolates the rate for the given number of months past the last observation.
// Each timestamp is aligned to the end of its calendar month.
func (m *Model) Predict(periods int) ([]models.ForecastPoint, error) {
	if m == nil {
		return nil, models.ErrUntrainedModel
	}
	if periods < 1 {
		return nil, fmt.Errorf("got %d, %w", periods, models.ErrInvalidHorizon)
	}

	t := timedataset.FutureMonths(m.Last.T, periods)
	points := make([]models.ForecastPoint, 0, periods)
	for k := 1; k <= periods; k++ {
		val := m.Last.Value + m.Rate*float64(k)
		points = append(points, models.ForecastPoint{
			T:     t[k-1],
			Value: val,
			Lower: val - m.Spread,
			Upper: val + m.Spread,
		})
	}
	return points, nil
}

// Result is the output of a single linear trend extrapolation
type Result struct {
	Rate   float64                `json:"rate"`
	Spread float64                `json:"spread"`
	Points []models.ForecastPoint `json:"points"`

	// Growth is nil when the last observed value is zero
	Growth *float64 `json:"growth_pct"`
}

// Forecast extrapolates horizon months past the end of td using the given confidence
// fraction and reports the growth from the last observation to the final forecast.
func Forecast(td *timedataset.TimeDataset, horizon int, confidence float64) (*Result, error) {
	lt, err := New(&Options{Confidence: confidence})
	if err != nil {
		return nil, err
	}
	fitted, err := lt.Fit(td)
	if err != nil {
		return nil, err
	}
	m := fitted.(*Model)

	points, err := m.Predict(horizon)
	if err != nil {
		return nil, err
	}

	growth, err := models.Growth(m.Last.Value, points)
	if err != nil && !errors.Is(err, models.ErrZeroBaseline) {
		return nil, err
	}

	return &Result{
		Rate:   m.Rate,
		Spread: m.Spread,
		Points: points,
		Growth: growth,
	}, nil
}
