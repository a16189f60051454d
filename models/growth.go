package models

import (
	"fmt"
	"math"
)

// GrowthPercent returns the percentage change from last to final. A zero baseline has no
// defined growth and returns NaN along with ErrZeroBaseline.
func GrowthPercent(last, final float64) (float64, error) {
	if last == 0 {
		return math.NaN(), ErrZeroBaseline
	}
	return (final - last) / last * 100.0, nil
}

// Growth computes the growth percentage between the last observed value and the final
// forecast point. A nil result with ErrZeroBaseline signals undefined growth.
func Growth(lastObserved float64, points []ForecastPoint) (*float64, error) {
	if len(points) == 0 {
		return nil, ErrNoForecast
	}
	pct, err := GrowthPercent(lastObserved, points[len(points)-1].Value)
	if err != nil {
		return nil, fmt.Errorf("last observed value is %v, %w", lastObserved, err)
	}
	return &pct, nil
}
