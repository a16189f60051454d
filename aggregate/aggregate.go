// Package aggregate rolls sales records up into monthly series
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aouyang1/go-salesforecaster/salesdata"
	"github.com/aouyang1/go-salesforecaster/timedataset"
	"github.com/samber/lo"
)

var (
	ErrNoRecords     = errors.New("no records to aggregate")
	ErrUnknownMetric = errors.New("unknown metric")
)

// Options configures the monthly roll up
type Options struct {
	// FillMissing inserts zero valued months between the first and last month with data
	FillMissing bool
}

// NewDefaultOptions only emits months that have records
func NewDefaultOptions() *Options {
	return &Options{}
}

// Monthly sums metric per calendar month. Each month is stamped with its first day at 00:00
// UTC and the series is in ascending order.
func Monthly(records []salesdata.Record, metric string, opt *Options) (*timedataset.TimeDataset, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	sums := make(map[time.Time]float64)
	for _, rec := range records {
		val, exists := rec.Values[metric]
		if !exists {
			return nil, fmt.Errorf("%q, %w", metric, ErrUnknownMetric)
		}
		sums[timedataset.MonthStart(rec.Date)] += val
	}

	months := lo.Keys(sums)
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	if opt.FillMissing {
		months = fillMonths(months[0], months[len(months)-1])
	}

	y := lo.Map(months, func(m time.Time, _ int) float64 {
		return sums[m]
	})
	return timedataset.NewMonthlyDataset(months, y)
}

// BySegment runs Monthly for each distinct non empty segment
func BySegment(records []salesdata.Record, metric string, opt *Options) (map[string]*timedataset.TimeDataset, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	groups := lo.GroupBy(
		lo.Filter(records, func(rec salesdata.Record, _ int) bool { return rec.Segment != "" }),
		func(rec salesdata.Record) string { return rec.Segment },
	)

	res := make(map[string]*timedataset.TimeDataset, len(groups))
	for segment, segRecords := range groups {
		td, err := Monthly(segRecords, metric, opt)
		if err != nil {
			return nil, fmt.Errorf("unable to aggregate segment %q, %w", segment, err)
		}
		res[segment] = td
	}
	return res, nil
}

func fillMonths(first, last time.Time) []time.Time {
	n := timedataset.MonthsBetween(first, last) + 1
	months := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		months = append(months, first.AddDate(0, i, 0))
	}
	return months
}
