package options

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-salesforecaster/feature"
	"github.com/aouyang1/go-salesforecaster/forecast/util"
	"github.com/aouyang1/go-salesforecaster/timedataset"
)

const (
	LabelSeasYearly = "yearly"

	// MonthsPerYear is the period of the yearly seasonality in months
	MonthsPerYear = 12

	// MaxYearlyOrders is the highest order sampled by 12 points per cycle
	MaxYearlyOrders = MonthsPerYear / 2

	// MinMonthsForYearly is the minimum training span required before yearly seasonality is
	// modelled. Anything shorter cannot separate the season from the trend.
	MinMonthsForYearly = 24

	DefaultYearlyOrders = 3
)

// SeasonalityOptions configures the yearly Fourier series fit to monthly data
type SeasonalityOptions struct {
	// YearlyOrders is the number of Fourier orders to fit. Zero disables seasonality.
	YearlyOrders int `json:"yearly_orders" yaml:"yearly_orders"`

	// MinMonths overrides MinMonthsForYearly when set
	MinMonths int `json:"min_months,omitempty" yaml:"min_months"`
}

// NewDefaultSeasonalityOptions returns the default yearly seasonality config
func NewDefaultSeasonalityOptions() SeasonalityOptions {
	return SeasonalityOptions{
		YearlyOrders: DefaultYearlyOrders,
	}
}

func (s SeasonalityOptions) minMonths() int {
	if s.MinMonths > 0 {
		return s.MinMonths
	}
	return MinMonthsForYearly
}

// Enabled reports whether yearly seasonality is modelled for a training window
func (s SeasonalityOptions) Enabled(trainStart, trainEnd time.Time) bool {
	span := timedataset.MonthsBetween(trainStart, trainEnd) + 1
	return s.YearlyOrders > 0 && span >= s.minMonths()
}

func (s SeasonalityOptions) validate() error {
	if s.YearlyOrders < 0 || s.YearlyOrders > MaxYearlyOrders {
		return fmt.Errorf("got %d yearly orders, %w", s.YearlyOrders, ErrInvalidSeasonalityOrders)
	}
	return nil
}

// generateFeatures adds sine and cosine columns of each order based on the month of year. The
// sine of the highest order is identically zero on monthly samples and is skipped.
func (s SeasonalityOptions) generateFeatures(t []time.Time, set feature.Set) {
	for order := 1; order <= s.YearlyOrders; order++ {
		sinData := make([]float64, len(t))
		cosData := make([]float64, len(t))
		omega := 2.0 * math.Pi * float64(order) / MonthsPerYear
		for i, tPnt := range t {
			rad := omega * float64(tPnt.Month()-1)
			sinData[i] = math.Sin(rad)
			cosData[i] = math.Cos(rad)
		}
		if order < MaxYearlyOrders {
			set.Add(feature.NewSeasonality(LabelSeasYearly, feature.FourierCompSin, order), sinData)
		}
		set.Add(feature.NewSeasonality(LabelSeasYearly, feature.FourierCompCos, order), cosData)
	}
}

func (s SeasonalityOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if s.YearlyOrders == 0 {
		_, err := fmt.Fprintf(w, "%s%sSeasonality: None\n", prefix, util.IndentExpand(indent, indentGrowth))
		return err
	}
	_, err := fmt.Fprintf(w, "%s%sSeasonality: %s, %d orders, min %d months\n",
		prefix, util.IndentExpand(indent, indentGrowth),
		LabelSeasYearly, s.YearlyOrders, s.minMonths())
	return err
}
