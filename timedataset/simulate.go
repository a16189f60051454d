package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateMonthlyT returns n month start timestamps ending with the month before the one
// returned by nowFunc.
func GenerateMonthlyT(n int, nowFunc func() time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := MonthStart(nowFunc()).AddDate(0, -n, 0)
	for i := 0; i < n; i++ {
		t = append(t, ct.AddDate(0, i, 0))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// SetConst overwrites all values whose time falls in [start, end)
func (s Series) SetConst(t []time.Time, val float64, start, end time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		if (t[i].After(start) || t[i].Equal(start)) && t[i].Before(end) {
			s[i] = val
		}
	}
	return s
}

// MaskWithMonth zeroes out every value not in the given calendar month
func (s Series) MaskWithMonth(t []time.Time, month time.Month) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		if t[i].Month() != month {
			s[i] = 0.0
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateLinearY produces start + slope*i for each of the n points
func GenerateLinearY(n int, start, slope float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, start+slope*float64(i))
	}
	return Series(y)
}

// GenerateYearlyWaveY produces a sinusoid with a one year period evaluated on the month of
// year so that every January has the same value regardless of day.
func GenerateYearlyWaveY(t []time.Time, amp float64, order int, monthOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		pos := (float64(t[i].Month()-1) + monthOffset) / 12.0
		y = append(y, amp*math.Sin(2.0*math.Pi*float64(order)*pos))
	}
	return Series(y)
}

func GenerateNoise(n int, scale float64, rng *rand.Rand) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		var v float64
		if rng != nil {
			v = rng.NormFloat64()
		} else {
			v = rand.NormFloat64()
		}
		y = append(y, v*scale)
	}
	return Series(y)
}
