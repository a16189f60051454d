package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/aouyang1/go-salesforecaster/models"
	"github.com/aouyang1/go-salesforecaster/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries(t *testing.T) *Series {
	t.Helper()
	tHist := []time.Time{
		time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	td, err := timedataset.NewMonthlyDataset(tHist, []float64{10e6, 11e6, 12e6})
	require.NoError(t, err)

	growth := 16.666666
	return &Series{
		Title:   "Projeção de Receita",
		History: td,
		Forecast: []models.ForecastPoint{
			{T: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Value: 13e6, Lower: 12e6, Upper: 14e6},
			{T: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Value: 14e6, Lower: 12.5e6, Upper: 15.5e6},
		},
		Growth: &growth,
	}
}

func TestFormatters(t *testing.T) {
	testData := map[string]struct {
		f        Formatter
		val      float64
		expected string
	}{
		"millions":                   {f: Millions, val: 12.3e6, expected: "R$12 Mi"},
		"integer thousands":          {f: Integer, val: 12345, expected: "12.345"},
		"integer truncates":          {f: Integer, val: 1234567.9, expected: "1.234.567"},
		"integer small":              {f: Integer, val: 999, expected: "999"},
		"millions or thousands high": {f: MillionsOrThousands, val: 1.23e6, expected: "R$1.2 Mi"},
		"millions or thousands low":  {f: MillionsOrThousands, val: 850e3, expected: "R$850 Mil"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.f(td.val))
		})
	}
}

func TestFormatterByName(t *testing.T) {
	assert.Equal(t, "R$12 Mi", FormatterByName("millions")(12e6))
	assert.Equal(t, "12.345", FormatterByName("integer")(12345))
	assert.Equal(t, "R$850 Mil", FormatterByName("millions_or_thousands")(850e3))
	assert.Nil(t, FormatterByName("percent"))
}

func TestAnnotate(t *testing.T) {
	testData := map[string]struct {
		lastHist float64
		lastProj float64
		factor   float64
		expected float64
	}{
		"growth places label below": {lastHist: 100, lastProj: 200, factor: 0.7, expected: 130},
		"decline places label above": {lastHist: 200, lastProj: 100, factor: 0.7, expected: 170},
		"segment factor":            {lastHist: 100, lastProj: 200, factor: 0.9, expected: 110},
		"flat":                      {lastHist: 100, lastProj: 100, factor: 0.7, expected: 100},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, td.expected, Annotate(td.lastHist, td.lastProj, td.factor), 1e-9)
		})
	}
}

func TestGrowthLabel(t *testing.T) {
	g := -3.14159
	assert.Equal(t, "-3.14%", GrowthLabel(&g))
	assert.Equal(t, "n/a", GrowthLabel(nil))
}

func TestNewChart(t *testing.T) {
	s := testSeries(t)
	line, err := NewChart(s, &ChartOptions{Formatter: Millions, AnnotationFactor: DefaultAnnotationFactor})
	require.NoError(t, err)

	require.Len(t, line.MultiSeries, 4)
	names := make([]string, 0, len(line.MultiSeries))
	for _, series := range line.MultiSeries {
		names = append(names, series.Name)
	}
	assert.Equal(t, []string{seriesHistory, seriesProjection, seriesLower, seriesBand}, names)

	var buf bytes.Buffer
	require.NoError(t, Page(&buf, line))
	html := buf.String()
	assert.Contains(t, html, "Receita")
	assert.Contains(t, html, "2024")
	assert.Contains(t, html, "16.67")
}

func TestNewChartErrors(t *testing.T) {
	_, err := NewChart(nil, nil)
	assert.ErrorIs(t, err, ErrNoHistory)

	s := testSeries(t)
	s.Forecast = nil
	_, err = NewChart(s, nil)
	assert.ErrorIs(t, err, ErrNoForecast)

	_, err = PNG(&Series{}, nil)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestPNG(t *testing.T) {
	s := testSeries(t)
	s.Growth = nil
	img, err := PNG(s, &ChartOptions{Formatter: MillionsOrThousands, Width: 600, Height: 300})
	require.NoError(t, err)
	require.Greater(t, len(img), 8)
	assert.Equal(t, []byte("\x89PNG"), img[:4])
}

func TestChartOptionsFormatter(t *testing.T) {
	testData := map[string]struct {
		opt      *ChartOptions
		expected string
	}{
		"format name":        {opt: &ChartOptions{Format: "millions"}, expected: "R$12 Mi"},
		"formatter override": {opt: &ChartOptions{Format: "millions", Formatter: Integer}, expected: "12.000.000"},
		"unknown format":     {opt: &ChartOptions{Format: "percent"}, expected: "12000000.00"},
		"unset":              {opt: &ChartOptions{}, expected: "12000000.00"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.opt.format(12e6))
		})
	}
}

func TestNewChartYAxisFormat(t *testing.T) {
	testData := map[string]struct {
		format   string
		expected string
	}{
		"millions":              {format: "millions", expected: "toFixed(0) + ' Mi'"},
		"integer":               {format: "integer", expected: "toLocaleString('pt-BR')"},
		"millions or thousands": {format: "millions_or_thousands", expected: "toFixed(0) + ' Mil'"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			line, err := NewChart(testSeries(t), &ChartOptions{Format: td.format})
			require.NoError(t, err)

			require.Len(t, line.YAxisList, 1)
			require.NotNil(t, line.YAxisList[0].AxisLabel)
			assert.Contains(t, line.YAxisList[0].AxisLabel.Formatter, td.expected)

			var buf bytes.Buffer
			require.NoError(t, Page(&buf, line))
			html := buf.String()
			assert.Contains(t, html, td.expected)
			assert.NotContains(t, html, "__f__")
		})
	}

	line, err := NewChart(testSeries(t), nil)
	require.NoError(t, err)
	assert.Nil(t, line.YAxisList[0].AxisLabel)
}

func TestPNGWithFormat(t *testing.T) {
	img, err := PNG(testSeries(t), &ChartOptions{Format: "millions", Width: 600, Height: 300})
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), img[:4])
}
