package render

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// MonthLayout is the layout of every month label on a chart axis
const MonthLayout = "01/2006"

// Formatter renders an axis or label value
type Formatter func(float64) string

// Millions renders a currency value in whole millions, e.g. R$12 Mi
func Millions(v float64) string {
	return fmt.Sprintf("R$%.0f Mi", v/1e6)
}

// Integer truncates v and groups thousands with a dot, e.g. 12.345
func Integer(v float64) string {
	return humanize.FormatFloat("#.###,", math.Trunc(v))
}

// MillionsOrThousands renders currency in millions with one decimal at or above a million and in
// whole thousands below it
func MillionsOrThousands(v float64) string {
	if v >= 1e6 {
		return fmt.Sprintf("R$%.1f Mi", v/1e6)
	}
	return fmt.Sprintf("R$%.0f Mil", v/1e3)
}

// axisFormatters mirror the named formatters for the y axis labels of the HTML chart, which are
// computed in the browser
var axisFormatters = map[string]string{
	"millions": `function (value) { return 'R$' + (value / 1e6).toFixed(0) + ' Mi'; }`,
	"integer":  `function (value) { return Math.trunc(value).toLocaleString('pt-BR'); }`,
	"millions_or_thousands": `function (value) {
		if (value >= 1e6) { return 'R$' + (value / 1e6).toFixed(1) + ' Mi'; }
		return 'R$' + (value / 1e3).toFixed(0) + ' Mil';
	}`,
}

// FormatterByName looks up one of the named formatters. An unknown name returns nil.
func FormatterByName(name string) Formatter {
	switch name {
	case "millions":
		return Millions
	case "integer":
		return Integer
	case "millions_or_thousands":
		return MillionsOrThousands
	}
	return nil
}

func axisFormatterByName(name string) (string, bool) {
	fn, ok := axisFormatters[name]
	if !ok {
		return "", false
	}
	return opts.FuncStripCommentsOpts(fn), true
}

func monthLabels(t []time.Time) []string {
	labels := make([]string, 0, len(t))
	for _, tm := range t {
		labels = append(labels, tm.Format(MonthLayout))
	}
	return labels
}

// Annotate returns the vertical position of the growth label relative to the final projected
// value. The label sits below the final value when growing and above it otherwise, offset by the
// absolute change scaled by factor.
func Annotate(lastHist, lastProj, factor float64) float64 {
	offset := math.Abs(lastProj-lastHist) * factor
	up := lastProj > lastHist
	if lastHist < 0 {
		up = !up
	}
	if up {
		return lastProj - offset
	}
	return lastProj + offset
}

// GrowthLabel renders a growth percentage with two decimals, or n/a when undefined
func GrowthLabel(growth *float64) string {
	if growth == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *growth)
}
