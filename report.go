package salesforecaster

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-salesforecaster/forecast"
	"github.com/aouyang1/go-salesforecaster/models"
	"github.com/aouyang1/go-salesforecaster/render"
	"github.com/aouyang1/go-salesforecaster/timedataset"
	"github.com/aouyang1/go-salesforecaster/trend"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SeriesReport is the forecast of a single monthly series
type SeriesReport struct {
	Name    string `json:"name"`
	Segment string `json:"segment,omitempty"`
	Title   string `json:"title,omitempty"`
	Format  string `json:"format,omitempty"`

	History      []timedataset.Observation `json:"history"`
	Forecast     []models.ForecastPoint    `json:"forecast"`
	LastObserved float64                   `json:"last_observed"`

	// Growth is nil when the last observed value is zero
	Growth *float64 `json:"growth_pct"`

	Regression *forecast.Model      `json:"regression,omitempty"`
	Components *forecast.Components `json:"components,omitempty"`
	Outliers   []time.Time          `json:"outliers,omitempty"`
	Trend      *trend.Model         `json:"trend,omitempty"`
}

// RenderSeries converts the report into a chart series
func (s *SeriesReport) RenderSeries() (*render.Series, error) {
	td, err := timedataset.FromObservations(s.History)
	if err != nil {
		return nil, fmt.Errorf("unable to rebuild history of %s, %w", s.Name, err)
	}
	title := s.Title
	if title == "" {
		title = s.Name
	}
	return &render.Series{
		Title:    title,
		History:  td,
		Forecast: s.Forecast,
		Growth:   s.Growth,
	}, nil
}

// FinalForecast returns the last forecast point
func (s *SeriesReport) FinalForecast() (models.ForecastPoint, bool) {
	if len(s.Forecast) == 0 {
		return models.ForecastPoint{}, false
	}
	return s.Forecast[len(s.Forecast)-1], true
}

func (s *SeriesReport) chartOptions() *render.ChartOptions {
	opt := render.NewDefaultChartOptions()
	opt.Format = s.Format
	if s.Segment != "" {
		opt.AnnotationFactor = render.SegmentAnnotationFactor
	}
	return opt
}

func (s *SeriesReport) format(v float64) string {
	if f := render.FormatterByName(s.Format); f != nil {
		return f(v)
	}
	return fmt.Sprintf("%.2f", v)
}

// Report is the result of a forecaster run
type Report struct {
	RunID         uuid.UUID                `json:"run_id"`
	CreatedAt     time.Time                `json:"created_at"`
	Horizon       int                      `json:"horizon"`
	Model         ModelType                `json:"model"`
	SegmentMetric string                   `json:"segment_metric,omitempty"`
	SegmentTitle  string                   `json:"segment_title,omitempty"`
	Series        []*SeriesReport          `json:"series"`
	Segments      map[string]*SeriesReport `json:"segments"`
}

// SegmentNames returns the forecast segments in order
func (r *Report) SegmentNames() []string {
	names := make([]string, 0, len(r.Segments))
	for name := range r.Segments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the overall series followed by the segments in order
func (r *Report) All() []*SeriesReport {
	all := make([]*SeriesReport, 0, len(r.Series)+len(r.Segments))
	all = append(all, r.Series...)
	for _, name := range r.SegmentNames() {
		all = append(all, r.Segments[name])
	}
	return all
}

// TablePrint writes a summary line per series with the last observation, the final forecast with
// its band and the growth between them
func (r *Report) TablePrint(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Run: %s\nCreated: %s\nModel: %s\nHorizon: %d months\n",
		r.RunID, r.CreatedAt.Format(time.RFC3339), r.Model, r.Horizon); err != nil {
		return err
	}

	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "Series\tSegment\tLast Month\tLast\tFinal Month\tFinal\tLower\tUpper\tGrowth\t\n"); err != nil {
		return err
	}
	for _, s := range r.All() {
		final, _ := s.FinalForecast()
		lastMonth := ""
		if n := len(s.History); n > 0 {
			lastMonth = s.History[n-1].T.Format(render.MonthLayout)
		}
		if _, err := fmt.Fprintf(tbl, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.Name, s.Segment,
			lastMonth, s.format(s.LastObserved),
			final.T.Format(render.MonthLayout), s.format(final.Value),
			s.format(final.Lower), s.format(final.Upper),
			render.GrowthLabel(s.Growth),
		); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// Charts builds a chart per series along with a components chart for every regression fit
func (r *Report) Charts() ([]*charts.Line, error) {
	var lines []*charts.Line
	for _, s := range r.All() {
		rs, err := s.RenderSeries()
		if err != nil {
			return nil, err
		}
		line, err := render.NewChart(rs, s.chartOptions())
		if err != nil {
			return nil, fmt.Errorf("unable to chart %s, %w", rs.Title, err)
		}
		lines = append(lines, line)

		if s.Components != nil {
			lines = append(lines, LineComponents(rs.Title+" - Componentes", rs.History.T, s.Components))
		}
	}
	return lines, nil
}

// WriteHTML renders every chart of the report onto a single page
func (r *Report) WriteHTML(w io.Writer) error {
	lines, err := r.Charts()
	if err != nil {
		return err
	}
	return render.Page(w, lines...)
}

var nonFilename = regexp.MustCompile(`[^a-z0-9_]+`)

// FileName returns a file system safe name for the series
func (s *SeriesReport) FileName() string {
	if s.Segment != "" {
		return strings.TrimSuffix("segment_"+sanitizeFileName(s.Segment), "_")
	}
	return sanitizeFileName(s.Name)
}

func sanitizeFileName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Trim(nonFilename.ReplaceAllString(name, "_"), "_")
}

// uniqueFileName returns name, or name with the lowest numeric suffix not yet in used
func uniqueFileName(used map[string]struct{}, name string) string {
	res := name
	for i := 2; ; i++ {
		if _, exists := used[res]; !exists {
			break
		}
		res = fmt.Sprintf("%s_%d", name, i)
	}
	used[res] = struct{}{}
	return res
}

// PNGs renders every series into a static image keyed by its file name. Series whose file names
// collide get a numeric suffix in report order.
func (r *Report) PNGs() (map[string][]byte, error) {
	res := make(map[string][]byte)
	used := make(map[string]struct{})
	for _, s := range r.All() {
		rs, err := s.RenderSeries()
		if err != nil {
			return nil, err
		}
		img, err := render.PNG(rs, s.chartOptions())
		if err != nil {
			return nil, fmt.Errorf("unable to render %s, %w", rs.Title, err)
		}
		name := uniqueFileName(used, s.FileName())
		if name != s.FileName() {
			slog.Warn("renamed chart with a colliding file name", "segment", s.Segment, "name", s.Name, "file", name)
		}
		res[name+".png"] = img
	}
	return res, nil
}

// MarshalReport encodes the report as indented JSON
func MarshalReport(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// UnmarshalReport decodes a report written by MarshalReport
func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unable to decode report, %w", err)
	}
	return &r, nil
}
