// Package stats holds the distribution helpers used by the seasonal regression forecast
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrInvalidIntervalWidth = errors.New("interval width must be within (0, 1)")

// DetectOutliers returns the indices of values outside of the Tukey fences built from the
// lowerPerc and upperPerc quantiles widened by tukeyFactor times the inner range. NaNs are
// never reported.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Min(math.Max(lowerPerc, 0.0), 1.0)
	upperPerc = math.Min(math.Max(upperPerc, lowerPerc), 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			yCopy = append(yCopy, v)
		}
	}
	if len(yCopy) == 0 {
		return nil
	}
	sort.Float64s(yCopy)

	lower := stat.Quantile(lowerPerc, stat.Empirical, yCopy, nil)
	upper := stat.Quantile(upperPerc, stat.Empirical, yCopy, nil)
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if math.IsNaN(y[i]) {
			continue
		}
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

// IntervalZ returns the two sided standard normal quantile covering width of the mass, e.g.
// 0.95 returns roughly 1.96
func IntervalZ(width float64) (float64, error) {
	if math.IsNaN(width) || width <= 0 || width >= 1 {
		return 0, fmt.Errorf("got %v, %w", width, ErrInvalidIntervalWidth)
	}
	return distuv.UnitNormal.Quantile(0.5 + width/2.0), nil
}

// ResidualStdDev is the root mean square of the finite residuals corrected for the number of
// fitted parameters. If there are no remaining degrees of freedom the plain root mean square is
// returned.
func ResidualStdDev(residuals []float64, params int) float64 {
	finite := make([]float64, 0, len(residuals))
	for _, r := range residuals {
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			finite = append(finite, r)
		}
	}
	if len(finite) == 0 {
		return 0
	}

	dof := len(finite) - params
	if dof <= 0 {
		dof = len(finite)
	}
	return math.Sqrt(floats.Dot(finite, finite) / float64(dof))
}
