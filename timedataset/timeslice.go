package timedataset

import (
	"errors"
	"time"
)

var ErrCannotInferFreq = errors.New("cannot infer monthly frequency from less than 2 points")

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}

	lastTime = t[len(t)-1]
	return lastTime
}

// EstimateMonthStep returns the most common number of calendar months between consecutive
// points, preferring the smaller step on ties.
func (t TimeSlice) EstimateMonthStep() (int, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	steps := make(map[int]int)
	for i := 1; i < len(t); i++ {
		steps[MonthsBetween(t[i-1], t[i])] += 1
	}

	var maxCnt, maxStep int
	for step, cnt := range steps {
		if cnt > maxCnt || (cnt == maxCnt && step < maxStep) {
			maxCnt = cnt
			maxStep = step
		}
	}
	return maxStep, nil
}

// MonthStart truncates t to the first instant of its calendar month in UTC
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last day of the calendar month of t at 00:00 UTC
func MonthEnd(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

// AddMonths advances t by k calendar months and aligns the result to the month end. Day
// overflow is not possible since the day is derived after the month arithmetic.
func AddMonths(t time.Time, k int) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+time.Month(k)+1, 0, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween returns the number of calendar month boundaries from a to b
func MonthsBetween(a, b time.Time) int {
	ay, am, _ := a.Date()
	by, bm, _ := b.Date()
	return (by-ay)*12 + int(bm-am)
}

// FutureMonths generates n month end timestamps following last
func FutureMonths(last time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	t := make([]time.Time, 0, n)
	for k := 1; k <= n; k++ {
		t = append(t, AddMonths(last, k))
	}
	return t
}
