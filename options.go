package salesforecaster

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aouyang1/go-salesforecaster/aggregate"
	"github.com/aouyang1/go-salesforecaster/forecast/options"
	"github.com/aouyang1/go-salesforecaster/forecast/util"
	"github.com/aouyang1/go-salesforecaster/trend"
)

// ModelType selects the forecaster fit to every series
type ModelType string

const (
	ModelRegression ModelType = "regression"
	ModelLinear     ModelType = "linear"
)

const (
	DefaultHorizon     = 6
	DefaultParallelism = 1
)

var (
	ErrInvalidHorizon     = errors.New("horizon must be at least one month")
	ErrUnknownModelType   = errors.New("unknown model type")
	ErrInvalidParallelism = errors.New("parallelism must be non-negative")
)

// Options configures a forecaster run
type Options struct {
	// Horizon is the number of months forecast past the last observation
	Horizon   int       `json:"horizon" yaml:"horizon"`
	ModelType ModelType `json:"model_type" yaml:"model_type"`

	// IntervalWidth is the band coverage of the regression model. It overrides the interval
	// width of ForecastOptions and SegmentForecastOptions. Zero means the default.
	IntervalWidth float64 `json:"interval_width" yaml:"interval_width"`

	// Confidence shrinks the band of the linear model
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// ForecastOptions is used for the overall metric series and SegmentForecastOptions for
	// every segment series. Both default to yearly seasonality without events.
	ForecastOptions        *options.Options `json:"forecast_options" yaml:"forecast"`
	SegmentForecastOptions *options.Options `json:"segment_forecast_options" yaml:"segment_forecast"`

	AggregateOptions *aggregate.Options `json:"aggregate_options" yaml:"aggregate"`

	// Parallelism limits the number of segments fit at the same time. Zero means one.
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

// NewDefaultOptions returns the defaults of a run, a six month regression forecast with a 70%
// interval
func NewDefaultOptions() *Options {
	return &Options{
		Horizon:                DefaultHorizon,
		ModelType:              ModelRegression,
		IntervalWidth:          options.DefaultIntervalWidth,
		Confidence:             trend.DefaultConfidence,
		ForecastOptions:        options.NewDefaultOptions(),
		SegmentForecastOptions: options.NewDefaultOptions(),
		AggregateOptions:       aggregate.NewDefaultOptions(),
		Parallelism:            DefaultParallelism,
	}
}

// Validate checks the options and returns a copy with every unset sub option filled in. The
// receiver is never modified.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	res := *o

	if res.Horizon < 1 {
		return nil, fmt.Errorf("got %d, %w", res.Horizon, ErrInvalidHorizon)
	}
	switch res.ModelType {
	case ModelRegression, ModelLinear:
	case "":
		res.ModelType = ModelRegression
	default:
		return nil, fmt.Errorf("got %q, %w", res.ModelType, ErrUnknownModelType)
	}
	if res.Parallelism < 0 {
		return nil, fmt.Errorf("got %d, %w", res.Parallelism, ErrInvalidParallelism)
	}
	if res.Parallelism == 0 {
		res.Parallelism = DefaultParallelism
	}
	if res.IntervalWidth == 0 {
		res.IntervalWidth = options.DefaultIntervalWidth
	}
	if res.AggregateOptions == nil {
		res.AggregateOptions = aggregate.NewDefaultOptions()
	}

	if _, err := (&trend.Options{Confidence: res.Confidence}).Validate(); err != nil {
		return nil, err
	}

	var err error
	res.ForecastOptions, err = withIntervalWidth(res.ForecastOptions, res.IntervalWidth)
	if err != nil {
		return nil, fmt.Errorf("unable to validate forecast options, %w", err)
	}
	res.SegmentForecastOptions, err = withIntervalWidth(res.SegmentForecastOptions, res.IntervalWidth)
	if err != nil {
		return nil, fmt.Errorf("unable to validate segment forecast options, %w", err)
	}
	return &res, nil
}

func withIntervalWidth(opt *options.Options, width float64) (*options.Options, error) {
	var res options.Options
	if opt == nil {
		res = *options.NewDefaultOptions()
	} else {
		res = *opt
	}
	res.IntervalWidth = width
	return res.Validate()
}

// TablePrint writes the options as an indented table
func (o *Options) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	pad := util.IndentExpand(indent, indentGrowth)
	if _, err := fmt.Fprintf(tbl, "%s%sModel:\t%s\t\n", prefix, pad, o.ModelType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tbl, "%s%sHorizon:\t%d months\t\n", prefix, pad, o.Horizon); err != nil {
		return err
	}
	switch o.ModelType {
	case ModelLinear:
		if _, err := fmt.Fprintf(tbl, "%s%sConfidence:\t%.2f\t\n", prefix, pad, o.Confidence); err != nil {
			return err
		}
	default:
		if _, err := fmt.Fprintf(tbl, "%s%sInterval Width:\t%.2f\t\n", prefix, pad, o.IntervalWidth); err != nil {
			return err
		}
	}
	if err := tbl.Flush(); err != nil {
		return err
	}
	if o.ModelType == ModelLinear || o.ForecastOptions == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s%sForecast Options:\n", prefix, pad); err != nil {
		return err
	}
	return o.ForecastOptions.TablePrint(w, prefix, indent, indentGrowth+1)
}
