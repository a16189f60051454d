// Package salesforecaster projects monthly sales metrics, overall and per segment, a configurable
// number of months past the last observation with a confidence band and the expected growth.
package salesforecaster

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aouyang1/go-salesforecaster/aggregate"
	"github.com/aouyang1/go-salesforecaster/forecast"
	"github.com/aouyang1/go-salesforecaster/models"
	"github.com/aouyang1/go-salesforecaster/salesdata"
	"github.com/aouyang1/go-salesforecaster/timedataset"
	"github.com/aouyang1/go-salesforecaster/trend"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInsufficientData = models.ErrInsufficientData
	ErrNoFitter         = errors.New("no fitter provided")
	ErrNoDataset        = errors.New("no dataset provided")
	ErrNoMetrics        = errors.New("no metrics to forecast")
)

// Forecaster fits every series of a sales dataset and projects it forward
type Forecaster struct {
	opt *Options

	fitter        models.Fitter
	segmentFitter models.Fitter

	nowFunc func() time.Time
}

// New creates a forecaster for the model type of the options. If no options are provided a
// default is used.
func New(opt *Options) (*Forecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	f := &Forecaster{opt: opt, nowFunc: time.Now}
	switch opt.ModelType {
	case ModelLinear:
		lt, err := trend.New(&trend.Options{Confidence: opt.Confidence})
		if err != nil {
			return nil, err
		}
		f.fitter = lt
		f.segmentFitter = lt
	default:
		if f.fitter, err = forecast.NewFitter(opt.ForecastOptions); err != nil {
			return nil, err
		}
		if f.segmentFitter, err = forecast.NewFitter(opt.SegmentForecastOptions); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// NewWithFitter creates a forecaster that fits every series, overall and segment, with fitter.
// The fitter must be safe for concurrent use when Parallelism is above one.
func NewWithFitter(opt *Options, fitter models.Fitter) (*Forecaster, error) {
	if fitter == nil {
		return nil, ErrNoFitter
	}
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Forecaster{
		opt:           opt,
		fitter:        fitter,
		segmentFitter: fitter,
		nowFunc:       time.Now,
	}, nil
}

// Options returns the validated options of the forecaster
func (f *Forecaster) Options() *Options {
	return f.opt
}

// Forecast fits td and projects it Horizon months forward. Growth is measured from the last
// observation to the final forecast point and is nil when the last observation is zero.
func (f *Forecaster) Forecast(name string, td *timedataset.TimeDataset) (*SeriesReport, error) {
	return f.forecast(f.fitter, name, td)
}

func (f *Forecaster) forecast(fitter models.Fitter, name string, td *timedataset.TimeDataset) (*SeriesReport, error) {
	if td.Len() < 2 {
		return nil, fmt.Errorf("%s has %d months, %w", name, td.Len(), ErrInsufficientData)
	}

	if step, err := timedataset.TimeSlice(td.T).EstimateMonthStep(); err == nil && step != 1 {
		slog.Warn("series is not observed every month", "name", name, "step_months", step)
	}

	m, err := fitter.Fit(td)
	if err != nil {
		return nil, fmt.Errorf("unable to fit %s, %w", name, err)
	}
	points, err := m.Predict(f.opt.Horizon)
	if err != nil {
		return nil, fmt.Errorf("unable to predict %s, %w", name, err)
	}

	last, _ := td.Last()
	growth, err := models.Growth(last.Value, points)
	if err != nil {
		if !errors.Is(err, models.ErrZeroBaseline) {
			return nil, err
		}
		slog.Warn("undefined growth from a zero baseline", "name", name, "last_month", last.T)
	}

	sr := &SeriesReport{
		Name:         name,
		History:      td.Observations(),
		Forecast:     points,
		LastObserved: last.Value,
		Growth:       growth,
	}

	switch fitted := m.(type) {
	case *forecast.Forecast:
		model, err := fitted.Model()
		if err != nil {
			return nil, err
		}
		sr.Regression = &model
		sr.Components = &forecast.Components{
			Trend:       fitted.TrendComponent(),
			Seasonality: fitted.SeasonalityComponent(),
			Event:       fitted.EventComponent(),
		}
		sr.Outliers = fitted.Outliers()
	case *trend.Model:
		sr.Trend = fitted
	}
	return sr, nil
}

// Metric names a metric of the dataset to forecast and how to present it
type Metric struct {
	Name   string `json:"name" yaml:"name"`
	Title  string `json:"title" yaml:"title"`
	Format string `json:"format" yaml:"format"`
}

const (
	DefaultSegmentTitle  = "Projeção de Receita por Segmento"
	DefaultSegmentFormat = "millions_or_thousands"
)

// DefaultMetrics returns the revenue and order metrics
func DefaultMetrics() []Metric {
	return []Metric{
		{
			Name:   salesdata.MetricRevenue,
			Title:  "Projeção de Receita com Sazonalidade de Março",
			Format: "millions",
		},
		{
			Name:   salesdata.MetricOrders,
			Title:  "Projeção de Pedidos com Sazonalidade de Março",
			Format: "integer",
		},
	}
}

// Run forecasts each metric over the whole dataset, then segmentMetric for every segment. An
// empty segmentMetric skips the segments. Segments with fewer than two months are skipped with a
// warning.
func (f *Forecaster) Run(ds *salesdata.Dataset, metrics []Metric, segmentMetric string) (*Report, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}
	if len(metrics) == 0 && segmentMetric == "" {
		return nil, ErrNoMetrics
	}

	report := &Report{
		RunID:         uuid.New(),
		CreatedAt:     f.nowFunc().UTC(),
		Horizon:       f.opt.Horizon,
		Model:         f.opt.ModelType,
		SegmentMetric: segmentMetric,
		SegmentTitle:  DefaultSegmentTitle,
		Series:        make([]*SeriesReport, 0, len(metrics)),
		Segments:      make(map[string]*SeriesReport),
	}

	for _, metric := range metrics {
		td, err := aggregate.Monthly(ds.Records, metric.Name, f.opt.AggregateOptions)
		if err != nil {
			return nil, fmt.Errorf("unable to aggregate %s, %w", metric.Name, err)
		}
		sr, err := f.Forecast(metric.Name, td)
		if err != nil {
			return nil, err
		}
		sr.Title = metric.Title
		sr.Format = metric.Format
		report.Series = append(report.Series, sr)
	}

	if segmentMetric == "" {
		return report, nil
	}

	segments, err := f.runSegments(ds, segmentMetric)
	if err != nil {
		return nil, err
	}
	report.Segments = segments
	return report, nil
}

func (f *Forecaster) runSegments(ds *salesdata.Dataset, metric string) (map[string]*SeriesReport, error) {
	bySegment, err := aggregate.BySegment(ds.Records, metric, f.opt.AggregateOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to aggregate segments, %w", err)
	}

	names := make([]string, 0, len(bySegment))
	for name, td := range bySegment {
		if td.Len() < 2 {
			slog.Warn("skipping segment with too few months", "segment", name, "months", td.Len())
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	// each goroutine owns one index of the results
	results := make([]*SeriesReport, len(names))
	g := new(errgroup.Group)
	g.SetLimit(f.opt.Parallelism)
	for i, name := range names {
		g.Go(func() error {
			sr, err := f.forecast(f.segmentFitter, name, bySegment[name])
			if err != nil {
				return fmt.Errorf("unable to forecast segment %q, %w", name, err)
			}
			sr.Segment = name
			sr.Title = fmt.Sprintf("%s - %s", DefaultSegmentTitle, name)
			sr.Format = DefaultSegmentFormat
			results[i] = sr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	segments := make(map[string]*SeriesReport, len(names))
	for i, name := range names {
		segments[name] = results[i]
	}
	return segments, nil
}
