// Package options contains all forecast options for a linear fit of a monthly sales series
package options

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-salesforecaster/feature"
	"github.com/aouyang1/go-salesforecaster/forecast/util"
	"github.com/aouyang1/go-salesforecaster/timedataset"
)

const DefaultIntervalWidth = 0.7

var (
	ErrNegativeRegularization   = errors.New("regularization must be non-negative")
	ErrInvalidIntervalWidth     = errors.New("interval width must be within (0, 1)")
	ErrInvalidSeasonalityOrders = errors.New("yearly orders must be within 0 and 6")
	ErrInvalidOutlierOptions    = errors.New("invalid outlier options")
)

// Options configures a forecast by specifying the seasonality order, month events and an
// optional ridge regularization parameter where higher values shrink the coefficients of
// features that contribute the least to the fit.
type Options struct {
	Regularization float64 `json:"regularization" yaml:"regularization"`

	// IntervalWidth is the probability mass covered by the forecast bounds
	IntervalWidth float64 `json:"interval_width" yaml:"interval_width"`

	SeasonalityOptions SeasonalityOptions `json:"seasonality_options" yaml:"seasonality"`
	EventOptions       EventOptions       `json:"event_options" yaml:"events"`
	OutlierOptions     OutlierOptions     `json:"outlier_options" yaml:"outliers"`
}

// NewDefaultOptions returns a set of default forecast options
func NewDefaultOptions() *Options {
	return &Options{
		IntervalWidth:      DefaultIntervalWidth,
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		OutlierOptions:     NewDefaultOutlierOptions(),
	}
}

// Validate checks the options, substituting the defaults if none are provided
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.Regularization < 0 || math.IsNaN(o.Regularization) {
		return nil, fmt.Errorf("got %v, %w", o.Regularization, ErrNegativeRegularization)
	}
	if math.IsNaN(o.IntervalWidth) || o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		return nil, fmt.Errorf("got %v, %w", o.IntervalWidth, ErrInvalidIntervalWidth)
	}
	if err := o.SeasonalityOptions.validate(); err != nil {
		return nil, err
	}
	if err := o.EventOptions.validate(); err != nil {
		return nil, fmt.Errorf("unable to validate events, %w", err)
	}
	if err := o.OutlierOptions.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// GenerateFeatures builds the growth, seasonality and event features for t relative to a
// training window. The same training window must be used when fitting and predicting so the
// columns line up.
func (o *Options) GenerateFeatures(t []time.Time, trainStart, trainEnd time.Time) feature.Set {
	if o == nil {
		o = NewDefaultOptions()
	}

	set := make(feature.Set)

	span := timedataset.MonthsBetween(trainStart, trainEnd)
	if span > 0 {
		linear := make([]float64, len(t))
		for i, tPnt := range t {
			linear[i] = float64(timedataset.MonthsBetween(trainStart, tPnt)) / float64(span)
		}
		set.Add(feature.Linear(), linear)
	}

	if o.SeasonalityOptions.Enabled(trainStart, trainEnd) {
		o.SeasonalityOptions.generateFeatures(t, set)
	}

	o.EventOptions.generateFeatures(t, trainEnd, set)
	return set
}

func (o *Options) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sRegularization: %.3f    Interval Width: %.2f\n",
		prefix, util.IndentExpand(indent, indentGrowth),
		o.Regularization, o.IntervalWidth); err != nil {
		return err
	}
	if err := o.SeasonalityOptions.TablePrint(w, prefix, indent, indentGrowth); err != nil {
		return err
	}
	if err := o.OutlierOptions.TablePrint(w, prefix, indent, indentGrowth); err != nil {
		return err
	}
	return o.EventOptions.TablePrint(w, prefix, indent, indentGrowth)
}

// OutlierOptions configures the passes that drop anomalous months before refitting. A month is
// an outlier if its residual falls outside the Tukey fences of the residual percentiles.
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes" yaml:"num_passes"`
	UpperPercentile float64 `json:"upper_percentile" yaml:"upper_percentile"`
	LowerPercentile float64 `json:"lower_percentile" yaml:"lower_percentile"`
	TukeyFactor     float64 `json:"tukey_factor" yaml:"tukey_factor"`
}

func NewDefaultOutlierOptions() OutlierOptions {
	return OutlierOptions{
		NumPasses:       0,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.5,
	}
}

func (o OutlierOptions) validate() error {
	if o.NumPasses < 0 {
		return fmt.Errorf("negative number of passes, %w", ErrInvalidOutlierOptions)
	}
	if o.NumPasses == 0 {
		return nil
	}
	if o.LowerPercentile < 0 || o.UpperPercentile > 1 || o.LowerPercentile >= o.UpperPercentile {
		return fmt.Errorf("percentiles [%v, %v], %w", o.LowerPercentile, o.UpperPercentile, ErrInvalidOutlierOptions)
	}
	if o.TukeyFactor < 0 {
		return fmt.Errorf("negative tukey factor, %w", ErrInvalidOutlierOptions)
	}
	return nil
}

func (o OutlierOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if o.NumPasses == 0 {
		_, err := fmt.Fprintf(w, "%s%sOutlier Removal: None\n", prefix, util.IndentExpand(indent, indentGrowth))
		return err
	}
	_, err := fmt.Fprintf(w, "%s%sOutlier Removal: %d passes, percentiles [%.2f, %.2f], tukey %.2f\n",
		prefix, util.IndentExpand(indent, indentGrowth),
		o.NumPasses, o.LowerPercentile, o.UpperPercentile, o.TukeyFactor)
	return err
}
