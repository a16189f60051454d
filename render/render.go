// Package render draws the history and projection of a forecast series as an interactive HTML
// chart or as a static PNG.
package render

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aouyang1/go-salesforecaster/models"
	"github.com/aouyang1/go-salesforecaster/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	gocharts "github.com/vicanso/go-charts/v2"
)

const (
	HistoryColor    = "#B3B3B3"
	ProjectionColor = "#D7A1A5"
	bandColor       = "rgba(215, 161, 165, 0.2)"
	clearColor      = "rgba(0, 0, 0, 0)"

	DefaultAnnotationFactor = 0.7
	SegmentAnnotationFactor = 0.9

	DefaultWidth  = 1200
	DefaultHeight = 600

	seriesHistory    = "Histórico"
	seriesProjection = "Projeção"
	seriesBand       = "Intervalo de Confiança"
	seriesLower      = "lower"
	confidenceStack  = "confidence"
)

var (
	ErrNoHistory  = errors.New("no history to render")
	ErrNoForecast = errors.New("no forecast to render")
)

// Series is everything needed to draw one forecast
type Series struct {
	Title    string
	History  *timedataset.TimeDataset
	Forecast []models.ForecastPoint
	Growth   *float64
}

func (s *Series) validate() error {
	if s == nil || s.History.Len() == 0 {
		return ErrNoHistory
	}
	if len(s.Forecast) == 0 {
		return ErrNoForecast
	}
	return nil
}

func (s *Series) times() []time.Time {
	t := make([]time.Time, 0, len(s.History.T)+len(s.Forecast))
	t = append(t, s.History.T...)
	for _, p := range s.Forecast {
		t = append(t, p.T)
	}
	return t
}

// ChartOptions tunes the appearance of a chart
type ChartOptions struct {
	// Format names one of the formatters of FormatterByName. It formats the y axis labels and
	// the final projected value next to the growth label.
	Format string

	// Formatter overrides the Format for the final projected value and the y axis of the PNG.
	// Values are printed with two decimals when neither is set.
	Formatter Formatter

	// AnnotationFactor scales the offset of the growth label from the final projected value
	AnnotationFactor float64

	// Width and Height in pixels, used by PNG only
	Width  int
	Height int
}

// NewDefaultChartOptions returns the options used for the overall series charts
func NewDefaultChartOptions() *ChartOptions {
	return &ChartOptions{
		AnnotationFactor: DefaultAnnotationFactor,
		Width:            DefaultWidth,
		Height:           DefaultHeight,
	}
}

func (o *ChartOptions) formatter() Formatter {
	if o.Formatter != nil {
		return o.Formatter
	}
	return FormatterByName(o.Format)
}

func (o *ChartOptions) format(v float64) string {
	if f := o.formatter(); f != nil {
		return f(v)
	}
	return fmt.Sprintf("%.2f", v)
}

func (o *ChartOptions) yAxis() opts.YAxis {
	yAxis := opts.YAxis{
		Type:  "value",
		Scale: opts.Bool(true),
	}
	if fn, ok := axisFormatterByName(o.Format); ok {
		yAxis.AxisLabel = &opts.AxisLabel{
			Show:      opts.Bool(true),
			Formatter: fn,
		}
	}
	return yAxis
}

// NewChart builds a line chart with the history in grey, the projection dashed in pink starting
// from the last observation, a shaded confidence band, and the growth percentage marked at the
// final projected month.
func NewChart(s *Series, opt *ChartOptions) (*charts.Line, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if opt == nil {
		opt = NewDefaultChartOptions()
	}

	nHist := len(s.History.Y)
	n := nHist + len(s.Forecast)
	last, _ := s.History.Last()

	history := make([]opts.LineData, 0, n)
	projection := make([]opts.LineData, 0, n)
	lower := make([]opts.LineData, 0, n)
	band := make([]opts.LineData, 0, n)
	for i, y := range s.History.Y {
		history = append(history, opts.LineData{Value: y})
		if i == nHist-1 {
			projection = append(projection, opts.LineData{Value: y})
		} else {
			projection = append(projection, opts.LineData{Value: "-"})
		}
		lower = append(lower, opts.LineData{Value: "-"})
		band = append(band, opts.LineData{Value: "-"})
	}
	for _, p := range s.Forecast {
		history = append(history, opts.LineData{Value: "-"})
		projection = append(projection, opts.LineData{Value: p.Value})
		lower = append(lower, opts.LineData{Value: p.Lower})
		band = append(band, opts.LineData{Value: p.Upper - p.Lower})
	}

	final := s.Forecast[len(s.Forecast)-1]
	labels := monthLabels(s.times())

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: s.Title,
			},
		),
		charts.WithTooltipOpts(
			opts.Tooltip{
				Show:    opts.Bool(true),
				Trigger: "axis",
			},
		),
		charts.WithLegendOpts(
			opts.Legend{
				Show: opts.Bool(true),
				Data: []string{seriesHistory, seriesProjection, seriesBand},
			},
		),
		charts.WithYAxisOpts(opt.yAxis()),
	)

	line.SetXAxis(labels).
		AddSeries(seriesHistory, history,
			charts.WithLineStyleOpts(opts.LineStyle{Color: HistoryColor, Width: 2}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: HistoryColor}),
		).
		AddSeries(seriesProjection, projection,
			charts.WithLineStyleOpts(opts.LineStyle{Color: ProjectionColor, Width: 2, Type: "dashed"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: ProjectionColor}),
			charts.WithMarkPointNameCoordItemOpts(
				opts.MarkPointNameCoordItem{
					Name:       "growth",
					Coordinate: []interface{}{labels[n-1], Annotate(last.Value, final.Value, opt.AnnotationFactor)},
					Value:      fmt.Sprintf("%s %s", GrowthLabel(s.Growth), opt.format(final.Value)),
					Symbol:     "pin",
					SymbolSize: 60,
					Label: &opts.Label{
						Show:  opts.Bool(true),
						Color: ProjectionColor,
					},
				},
			),
		).
		AddSeries(seriesLower, lower,
			charts.WithLineChartOpts(opts.LineChart{Stack: confidenceStack}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: clearColor}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: clearColor}),
		).
		AddSeries(seriesBand, band,
			charts.WithLineChartOpts(opts.LineChart{Stack: confidenceStack}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: clearColor}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: ProjectionColor}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Color: bandColor}),
		)
	return line, nil
}

// Page renders every chart onto a single HTML page
func Page(w io.Writer, lines ...*charts.Line) error {
	page := components.NewPage()
	for _, line := range lines {
		page.AddCharts(line)
	}
	return page.Render(w)
}

// PNG renders a static image of the history, projection and band of s
func PNG(s *Series, opt *ChartOptions) ([]byte, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if opt == nil {
		opt = NewDefaultChartOptions()
	}
	width, height := opt.Width, opt.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	null := gocharts.GetNullValue()
	nHist := len(s.History.Y)
	n := nHist + len(s.Forecast)

	history := make([]float64, 0, n)
	projection := make([]float64, 0, n)
	upper := make([]float64, 0, n)
	lower := make([]float64, 0, n)
	for i, y := range s.History.Y {
		history = append(history, y)
		if i == nHist-1 {
			projection = append(projection, y)
			upper = append(upper, y)
			lower = append(lower, y)
			continue
		}
		projection = append(projection, null)
		upper = append(upper, null)
		lower = append(lower, null)
	}
	res := models.NewResults(s.Forecast)
	for i := 0; i < res.Len(); i++ {
		history = append(history, null)
	}
	projection = append(projection, res.Forecast...)
	upper = append(upper, res.Upper...)
	lower = append(lower, res.Lower...)

	final := s.Forecast[len(s.Forecast)-1]
	subtitle := fmt.Sprintf("%s %s", GrowthLabel(s.Growth), opt.format(final.Value))

	renderOpts := []gocharts.OptionFunc{
		gocharts.PNGTypeOption(),
		gocharts.TitleTextOptionFunc(s.Title, subtitle),
		gocharts.XAxisOptionFunc(gocharts.XAxisOption{
			Data:        monthLabels(s.times()),
			BoundaryGap: gocharts.FalseFlag(),
		}),
		gocharts.LegendOptionFunc(gocharts.LegendOption{
			Data: []string{seriesHistory, seriesProjection, "Superior", "Inferior"},
		}),
		gocharts.ThemeOptionFunc(gocharts.ThemeLight),
		gocharts.WidthOptionFunc(width),
		gocharts.HeightOptionFunc(height),
	}
	if f := opt.formatter(); f != nil {
		renderOpts = append(renderOpts, func(o *gocharts.ChartOption) {
			o.ValueFormatter = gocharts.ValueFormatter(f)
		})
	}

	painter, err := gocharts.LineRender([][]float64{history, projection, upper, lower}, renderOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to render png, %w", err)
	}
	return painter.Bytes()
}
