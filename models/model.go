// Package models defines the contract between the sales forecaster and the forecasting
// implementations it drives, along with the shared forecast output types.
package models

import (
	"time"

	"github.com/aouyang1/go-salesforecaster/timedataset"
)

// ForecastPoint is a single projected value for a timestamp strictly after the last
// observation along with its interval bounds.
type ForecastPoint struct {
	T     time.Time `json:"time"`
	Value float64   `json:"forecast"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// Fitter trains a forecasting model against a monthly series
type Fitter interface {
	Fit(td *timedataset.TimeDataset) (Model, error)
}

// Model is a trained forecasting model able to project a number of future periods past the
// end of its training data.
type Model interface {
	Predict(periods int) ([]ForecastPoint, error)
}

// FitterFunc adapts a plain function into a Fitter
type FitterFunc func(td *timedataset.TimeDataset) (Model, error)

func (f FitterFunc) Fit(td *timedataset.TimeDataset) (Model, error) {
	return f(td)
}
