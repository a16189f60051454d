package salesforecaster

import (
	"math"
	"time"

	"github.com/aouyang1/go-salesforecaster/forecast"
	"github.com/aouyang1/go-salesforecaster/render"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values are
// left as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithLegendOpts(
			opts.Legend{
				Show: opts.Bool(true),
				Data: seriesName,
			},
		),
	)

	labels := make([]string, 0, len(t))
	for _, tPnt := range t {
		labels = append(labels, tPnt.Format(render.MonthLayout))
	}

	lineData := make([][]opts.LineData, len(y))
	for i := 0; i < len(y); i++ {
		lineData[i] = make([]opts.LineData, 0, len(t))
		for j := 0; j < len(t); j++ {
			if j >= len(y[i]) || math.IsNaN(y[i][j]) {
				lineData[i] = append(lineData[i], opts.LineData{Value: "-"})
				continue
			}
			lineData[i] = append(lineData[i], opts.LineData{Value: y[i][j]})
		}
	}

	line = line.SetXAxis(labels)
	for i, series := range seriesName {
		line = line.AddSeries(series, lineData[i])
	}

	return line
}

// LineComponents charts the trend, seasonality and event parts of a regression fit. A component
// that does not line up with t is left empty.
func LineComponents(title string, t []time.Time, comp *forecast.Components) *charts.Line {
	return LineTSeries(
		title,
		[]string{"Tendência", "Sazonalidade", "Evento"},
		t,
		[][]float64{
			alignComponent(comp.Trend, len(t)),
			alignComponent(comp.Seasonality, len(t)),
			alignComponent(comp.Event, len(t)),
		},
	)
}

func alignComponent(c []float64, n int) []float64 {
	if len(c) == n {
		return c
	}
	res := make([]float64, n)
	for i := range res {
		res[i] = math.NaN()
	}
	return res
}
