// Package salesdata reads order level sales rows from an Excel workbook
package salesdata

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

const (
	DefaultDateColumn    = "Data"
	DefaultSegmentColumn = "Segmento"

	MetricRevenue = "receita"
	MetricOrders  = "pedidos"
)

var (
	ErrNoHeader      = errors.New("no header row with the date column")
	ErrMissingColumn = errors.New("missing column")
	ErrNoRows        = errors.New("no data rows")
	ErrNoMetrics     = errors.New("no metric columns configured")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidNumber = errors.New("invalid number")
	ErrUnknownSheet  = errors.New("unknown sheet")
)

// dateLayouts are the text layouts accepted for the date column, tried in order
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"01/2006",
}

// Columns maps the workbook headers onto the dataset fields
type Columns struct {
	// Sheet defaults to the first sheet of the workbook
	Sheet   string
	Date    string
	Segment string

	// Metrics maps a metric name to its column header
	Metrics map[string]string

	// Strict fails the load on the first bad row instead of skipping it
	Strict bool
}

// NewDefaultColumns returns the column layout of the delivery fee report
func NewDefaultColumns() Columns {
	return Columns{
		Date:    DefaultDateColumn,
		Segment: DefaultSegmentColumn,
		Metrics: map[string]string{
			MetricRevenue: "Receita de taxa de entrega",
			MetricOrders:  "Pedidos",
		},
	}
}

// Record is a single row of the workbook
type Record struct {
	Date    time.Time          `json:"date"`
	Segment string             `json:"segment,omitempty"`
	Values  map[string]float64 `json:"values"`
}

// Dataset is every parsed row along with the distinct segments in sorted order
type Dataset struct {
	Records  []Record `json:"records"`
	Segments []string `json:"segments"`
}

// Metrics returns the sorted metric names present in the dataset
func (d *Dataset) Metrics() []string {
	if d == nil || len(d.Records) == 0 {
		return nil
	}
	names := lo.Keys(d.Records[0].Values)
	sort.Strings(names)
	return names
}

type columnIndex struct {
	date    int
	segment int
	metrics map[string]int
}

// Load opens the workbook at path and parses every row below the header. Rows that cannot be
// parsed are skipped with a warning unless cols.Strict is set.
func Load(path string, cols Columns) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook %s, %w", path, err)
	}
	defer f.Close()

	return Read(f, cols)
}

// Read parses an already opened workbook
func Read(f *excelize.File, cols Columns) (*Dataset, error) {
	if len(cols.Metrics) == 0 {
		return nil, ErrNoMetrics
	}

	sheet := cols.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrUnknownSheet
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%q, %w", sheet, ErrUnknownSheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q, %w", sheet, err)
	}

	headerRow, idx, err := findHeader(rows, cols)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{}
	var errs *multierror.Error
	for r := headerRow + 1; r < len(rows); r++ {
		row := rows[r]
		if isBlank(row) {
			continue
		}

		rec, err := parseRow(row, idx)
		if err != nil {
			// excel rows are 1 indexed
			rowErr := fmt.Errorf("row %d: %w", r+1, err)
			errs = multierror.Append(errs, rowErr)
			if !cols.Strict {
				slog.Warn("skipping row", "sheet", sheet, "row", r+1, "error", err.Error())
			}
			continue
		}
		ds.Records = append(ds.Records, rec)
	}
	if cols.Strict {
		if err := errs.ErrorOrNil(); err != nil {
			return nil, err
		}
	}
	if len(ds.Records) == 0 {
		return nil, fmt.Errorf("sheet %q, %w", sheet, ErrNoRows)
	}

	segments := lo.Uniq(lo.FilterMap(ds.Records, func(rec Record, _ int) (string, bool) {
		return rec.Segment, rec.Segment != ""
	}))
	sort.Strings(segments)
	ds.Segments = segments

	return ds, nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func findHeader(rows [][]string, cols Columns) (int, columnIndex, error) {
	dateCol := normalizeHeader(cols.Date)
	for r, row := range rows {
		headers := make(map[string]int, len(row))
		for c, cell := range row {
			if h := normalizeHeader(cell); h != "" {
				if _, exists := headers[h]; !exists {
					headers[h] = c
				}
			}
		}
		dateIdx, exists := headers[dateCol]
		if !exists {
			continue
		}

		idx := columnIndex{
			date:    dateIdx,
			segment: -1,
			metrics: make(map[string]int, len(cols.Metrics)),
		}
		if cols.Segment != "" {
			if segIdx, exists := headers[normalizeHeader(cols.Segment)]; exists {
				idx.segment = segIdx
			}
		}

		var missing []string
		for name, header := range cols.Metrics {
			c, exists := headers[normalizeHeader(header)]
			if !exists {
				missing = append(missing, header)
				continue
			}
			idx.metrics[name] = c
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return 0, columnIndex{}, fmt.Errorf("%s, %w", strings.Join(missing, ", "), ErrMissingColumn)
		}
		return r, idx, nil
	}
	return 0, columnIndex{}, fmt.Errorf("looking for %q, %w", cols.Date, ErrNoHeader)
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseRow(row []string, idx columnIndex) (Record, error) {
	date, err := ParseDate(cellAt(row, idx.date))
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Date:    date,
		Segment: strings.TrimSpace(cellAt(row, idx.segment)),
		Values:  make(map[string]float64, len(idx.metrics)),
	}
	for name, c := range idx.metrics {
		val, err := ParseNumber(cellAt(row, c))
		if err != nil {
			return Record{}, fmt.Errorf("column %q, %w", name, err)
		}
		rec.Values[name] = val
	}
	return rec, nil
}

// ParseDate accepts an Excel serial date or one of the text layouts. Slashed dates are read day
// first, as in 15/01/2022, the Brazilian convention, so 03/04/2022 is the 3rd of April. The
// result is in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty cell, %w", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, fmt.Errorf("%q, %w", s, ErrInvalidDate)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q, %w", s, errors.Join(ErrInvalidDate, err))
	}
	return t.UTC(), nil
}

// ParseNumber accepts plain decimals, Brazilian formatted numbers such as 1.234,50 with an
// optional R$ prefix, and empty cells which count as zero. A number with several dots and no
// comma is read as dot grouped thousands, while a single dot and no comma is a decimal point, so
// 1.234 is one and a fraction. Raw numeric cells are always written that way. US grouping such
// as 1,234.50 and repeated commas are rejected as ambiguous.
func ParseNumber(s string) (float64, error) {
	orig := s
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, nil
	}

	switch comma := strings.Index(s, ","); {
	case comma >= 0 && (strings.Count(s, ",") > 1 || strings.LastIndex(s, ".") > comma):
		return 0, fmt.Errorf("%q is not Brazilian formatted, %w", orig, ErrInvalidNumber)
	case comma >= 0:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q, %w", orig, ErrInvalidNumber)
	}
	return v, nil
}
