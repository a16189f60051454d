package options

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-salesforecaster/feature"
	"github.com/aouyang1/go-salesforecaster/forecast/util"
	"github.com/aouyang1/go-salesforecaster/timedataset"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

var (
	ErrNoEventName        = errors.New("no event name")
	ErrInvalidEventMonth  = errors.New("event month must be within 1 and 12")
	ErrDuplicateEventName = errors.New("duplicate event name")
)

// MonthEvent marks a calendar month in which sales are expected to jump, such as a yearly
// promotion. In the training window the event is active only in Years, or in every year when
// Years is empty. After the training window it recurs every year when RecurInForecast is set.
type MonthEvent struct {
	Name            string     `json:"name" yaml:"name"`
	Month           time.Month `json:"month" yaml:"month"`
	Years           []int      `json:"years,omitempty" yaml:"years"`
	RecurInForecast bool       `json:"recur_in_forecast" yaml:"recur_in_forecast"`
}

// NewMonthEvent creates an event for a month of the given years
func NewMonthEvent(name string, month time.Month, recur bool, years ...int) MonthEvent {
	return MonthEvent{
		Name:            name,
		Month:           month,
		Years:           years,
		RecurInForecast: recur,
	}
}

func (e MonthEvent) Valid() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrNoEventName
	}
	if e.Month < time.January || e.Month > time.December {
		return fmt.Errorf("%q has month %d, %w", e.Name, e.Month, ErrInvalidEventMonth)
	}
	return nil
}

// Active reports whether the event applies at t given the last training time
func (e MonthEvent) Active(t, trainEnd time.Time) bool {
	if t.Month() != e.Month {
		return false
	}
	if timedataset.MonthsBetween(trainEnd, t) > 0 {
		return e.RecurInForecast
	}
	return len(e.Years) == 0 || slices.Contains(e.Years, t.Year())
}

// Mask returns 1.0 where the event is active and 0.0 elsewhere
func (e MonthEvent) Mask(t []time.Time, trainEnd time.Time) []float64 {
	mask := make([]float64, len(t))
	for i, tPnt := range t {
		if e.Active(tPnt, trainEnd) {
			mask[i] = 1.0
		}
	}
	return mask
}

// HolidayEvents converts a holiday into month events between start and end inclusive. Years
// where the holiday falls in the same month are grouped into one event.
func HolidayEvents(hol *cal.Holiday, start, end time.Time, recur bool) []MonthEvent {
	if hol == nil {
		return nil
	}

	byMonth := make(map[time.Month][]int)
	for year := start.Year(); year <= end.Year(); year++ {
		actual, _ := hol.Calc(year)
		if actual.IsZero() {
			continue
		}
		byMonth[actual.Month()] = append(byMonth[actual.Month()], year)
	}

	months := make([]time.Month, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	events := make([]MonthEvent, 0, len(months))
	for _, m := range months {
		name := strings.ReplaceAll(hol.Name, " ", "_")
		if len(months) > 1 {
			name += "_" + strconv.Itoa(int(m))
		}
		events = append(events, NewMonthEvent(name, m, recur, byMonth[m]...))
	}
	return events
}

func Christmas(start, end time.Time) []MonthEvent {
	return HolidayEvents(us.ChristmasDay, start, end, true)
}

func Thanksgiving(start, end time.Time) []MonthEvent {
	return HolidayEvents(us.ThanksgivingDay, start, end, true)
}

type EventOptions struct {
	Events []MonthEvent `json:"events" yaml:"events"`
}

func (e EventOptions) validate() error {
	names := make(map[string]struct{}, len(e.Events))
	for _, ev := range e.Events {
		if err := ev.Valid(); err != nil {
			return err
		}
		name := feature.NewEvent(ev.Name).String()
		if _, exists := names[name]; exists {
			return fmt.Errorf("%q, %w", ev.Name, ErrDuplicateEventName)
		}
		names[name] = struct{}{}
	}
	return nil
}

func (e EventOptions) generateFeatures(t []time.Time, trainEnd time.Time, set feature.Set) {
	for _, ev := range e.Events {
		set.Add(feature.NewEvent(ev.Name), ev.Mask(t, trainEnd))
	}
}

func (e EventOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(e.Events) > 0 {
		noCfg = ""
	}
	if _, err := fmt.Fprintf(w, "%s%sEvents:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	if len(e.Events) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(tbl, "%s%sName\tMonth\tYears\tRecurs\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	for _, ev := range e.Events {
		years := "all"
		if len(ev.Years) > 0 {
			parts := make([]string, 0, len(ev.Years))
			for _, y := range ev.Years {
				parts = append(parts, strconv.Itoa(y))
			}
			years = strings.Join(parts, ",")
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t%t\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			ev.Name, ev.Month, years, ev.RecurInForecast); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
