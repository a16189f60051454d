package models

import (
	"time"
)

// Results is the columnar view of a set of forecast points, which is the layout the chart
// renderers consume.
type Results struct {
	T        []time.Time `json:"time"`
	Forecast []float64   `json:"forecast"`
	Upper    []float64   `json:"upper"`
	Lower    []float64   `json:"lower"`
}

// NewResults converts forecast points into columns
func NewResults(points []ForecastPoint) *Results {
	r := &Results{
		T:        make([]time.Time, 0, len(points)),
		Forecast: make([]float64, 0, len(points)),
		Upper:    make([]float64, 0, len(points)),
		Lower:    make([]float64, 0, len(points)),
	}
	for _, p := range points {
		r.T = append(r.T, p.T)
		r.Forecast = append(r.Forecast, p.Value)
		r.Upper = append(r.Upper, p.Upper)
		r.Lower = append(r.Lower, p.Lower)
	}
	return r
}

// Points converts the columns back into forecast points
func (r *Results) Points() []ForecastPoint {
	if r == nil {
		return nil
	}
	points := make([]ForecastPoint, 0, len(r.T))
	for i := range r.T {
		points = append(points, ForecastPoint{
			T:     r.T[i],
			Value: r.Forecast[i],
			Lower: r.Lower[i],
			Upper: r.Upper[i],
		})
	}
	return points
}

// Len returns the number of forecast points
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.T)
}
