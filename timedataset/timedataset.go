package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrDuplicateMonth     = errors.New("more than one observation in the same calendar month")
)

// Observation is a single point of a monthly series
type Observation struct {
	T     time.Time `json:"time"`
	Value float64   `json:"value"`
}

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length.
type TimeDataset struct {
	T []time.Time `json:"time"`
	Y []float64   `json:"values"`
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice. Time
// must be strictly increasing. The input slices are copied.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	for i := 1; i < len(t); i++ {
		if !t[i].After(t[i-1]) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}, nil
}

// NewMonthlyDataset is NewUnivariateDataset with the additional constraint that no two points
// fall in the same calendar month.
func NewMonthlyDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	td, err := NewUnivariateDataset(t, y)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(td.T); i++ {
		if MonthsBetween(td.T[i-1], td.T[i]) < 1 {
			return nil, fmt.Errorf("%s at %d, %w", td.T[i].Format("2006-01"), i, ErrDuplicateMonth)
		}
	}
	return td, nil
}

// FromObservations builds a monthly dataset from a slice of observations
func FromObservations(obs []Observation) (*TimeDataset, error) {
	t := make([]time.Time, 0, len(obs))
	y := make([]float64, 0, len(obs))
	for _, o := range obs {
		t = append(t, o.T)
		y = append(y, o.Value)
	}
	return NewMonthlyDataset(t, y)
}

func (td *TimeDataset) Copy() *TimeDataset {
	if td == nil {
		return nil
	}
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.Y))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// Len returns the number of observations
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.Y)
}

// Observations returns the dataset as a slice of time/value pairs
func (td *TimeDataset) Observations() []Observation {
	if td == nil {
		return nil
	}
	obs := make([]Observation, 0, len(td.T))
	for i := range td.T {
		obs = append(obs, Observation{T: td.T[i], Value: td.Y[i]})
	}
	return obs
}

// Last returns the final observation and false if the dataset is empty
func (td *TimeDataset) Last() (Observation, bool) {
	if td.Len() == 0 {
		return Observation{}, false
	}
	n := len(td.T) - 1
	return Observation{T: td.T[n], Value: td.Y[n]}, true
}

// DropNan returns a copy of the dataset without any NaN values
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}
	res := &TimeDataset{
		T: make([]time.Time, 0, len(td.T)),
		Y: make([]float64, 0, len(td.Y)),
	}
	for i := range td.Y {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		res.T = append(res.T, td.T[i])
		res.Y = append(res.Y, td.Y[i])
	}
	return res
}
