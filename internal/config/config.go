// Package config loads the settings of the salesforecast command from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aouyang1/go-salesforecaster"
	"github.com/aouyang1/go-salesforecaster/aggregate"
	"github.com/aouyang1/go-salesforecaster/forecast/options"
	"github.com/aouyang1/go-salesforecaster/salesdata"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable, e.g. SALESFORECAST_FORECAST_INTERVAL_WIDTH
const EnvPrefix = "SALESFORECAST"

var ErrInvalidLogLevel = errors.New("invalid log level")

// Config represents the complete command configuration
type Config struct {
	Input    InputConfig    `yaml:"input" envconfig:"INPUT"`
	Forecast ForecastConfig `yaml:"forecast" envconfig:"FORECAST"`
	Output   OutputConfig   `yaml:"output" envconfig:"OUTPUT"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// InputConfig locates the workbook and its columns
type InputConfig struct {
	Path          string         `yaml:"path" default:"dados.xlsx" validate:"required"`
	Sheet         string         `yaml:"sheet"`
	DateColumn    string         `yaml:"date_column" split_words:"true" default:"Data" validate:"required"`
	SegmentColumn string         `yaml:"segment_column" split_words:"true" default:"Segmento"`
	SegmentMetric string         `yaml:"segment_metric" split_words:"true" default:"receita"`
	Strict        bool           `yaml:"strict" default:"false"`
	FillMissing   bool           `yaml:"fill_missing" split_words:"true" default:"false"`
	Metrics       []MetricConfig `yaml:"metrics" ignored:"true" validate:"dive"`
}

// MetricConfig maps a metric to its workbook column and chart presentation
type MetricConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Column string `yaml:"column" validate:"required"`
	Title  string `yaml:"title"`
	Format string `yaml:"format" validate:"omitempty,oneof=millions integer millions_or_thousands"`
}

// ForecastConfig selects and tunes the model
type ForecastConfig struct {
	Horizon        int     `yaml:"horizon" default:"6" validate:"min=1,max=120"`
	Model          string  `yaml:"model" default:"regression" validate:"oneof=regression linear"`
	IntervalWidth  float64 `yaml:"interval_width" split_words:"true" default:"0.7" validate:"gt=0,lt=1"`
	Confidence     float64 `yaml:"confidence" default:"0.7" validate:"gte=0,lte=1"`
	Regularization float64 `yaml:"regularization" default:"0" validate:"gte=0"`
	YearlyOrders   int     `yaml:"yearly_orders" split_words:"true" default:"3" validate:"gte=0,lte=6"`
	OutlierPasses  int     `yaml:"outlier_passes" split_words:"true" default:"0" validate:"gte=0"`
	Parallelism    int     `yaml:"parallelism" default:"1" validate:"min=1"`

	// PromoMonth adds a month event to the overall series. Zero disables it.
	PromoMonth int    `yaml:"promo_month" split_words:"true" default:"3" validate:"gte=0,lte=12"`
	PromoName  string `yaml:"promo_name" split_words:"true" default:"promo_marco"`
	PromoYears []int  `yaml:"promo_years" split_words:"true" default:"2022"`
	PromoRecur bool   `yaml:"promo_recur" split_words:"true" default:"true"`

	// Holidays adds month events for the named US holidays, e.g. christmas or thanksgiving
	Holidays []string `yaml:"holidays" validate:"dive,oneof=christmas thanksgiving"`
}

// OutputConfig controls the files written by a run
type OutputConfig struct {
	Dir  string `yaml:"dir" default:"out" validate:"required"`
	HTML bool   `yaml:"html" default:"true"`
	PNG  bool   `yaml:"png" default:"false"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

// DefaultMetrics returns the revenue and order metrics of the delivery workbook
func DefaultMetrics() []MetricConfig {
	cols := salesdata.NewDefaultColumns()
	metrics := salesforecaster.DefaultMetrics()
	res := make([]MetricConfig, 0, len(metrics))
	for _, m := range metrics {
		res = append(res, MetricConfig{
			Name:   m.Name,
			Column: cols.Metrics[m.Name],
			Title:  m.Title,
			Format: m.Format,
		})
	}
	return res
}

// Load reads the defaults and environment first, then overlays the YAML file at path if one is
// given, and finally validates the result
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("unable to load config from env, %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config file, %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config file, %w", err)
		}
	}

	if len(cfg.Input.Metrics) == 0 {
		cfg.Input.Metrics = DefaultMetrics()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every validate tag of the config
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config, %w", err)
	}
	return nil
}

// Columns returns the workbook columns to load
func (c *Config) Columns() salesdata.Columns {
	metrics := make(map[string]string, len(c.Input.Metrics))
	for _, m := range c.Input.Metrics {
		metrics[m.Name] = m.Column
	}
	return salesdata.Columns{
		Sheet:   c.Input.Sheet,
		Date:    c.Input.DateColumn,
		Segment: c.Input.SegmentColumn,
		Metrics: metrics,
		Strict:  c.Input.Strict,
	}
}

// Metrics returns the metrics to forecast over the whole dataset
func (c *Config) Metrics() []salesforecaster.Metric {
	res := make([]salesforecaster.Metric, 0, len(c.Input.Metrics))
	for _, m := range c.Input.Metrics {
		title := m.Title
		if title == "" {
			title = m.Name
		}
		res = append(res, salesforecaster.Metric{Name: m.Name, Title: title, Format: m.Format})
	}
	return res
}

// ForecasterOptions converts the forecast config into forecaster options. The promotion and
// holiday events only apply to the overall series.
func (c *Config) ForecasterOptions() (*salesforecaster.Options, error) {
	fc := c.Forecast

	segOpt := options.NewDefaultOptions()
	segOpt.Regularization = fc.Regularization
	segOpt.SeasonalityOptions.YearlyOrders = fc.YearlyOrders
	segOpt.OutlierOptions.NumPasses = fc.OutlierPasses

	overallOpt := *segOpt
	overallOpt.EventOptions = options.EventOptions{Events: c.events()}

	opt := &salesforecaster.Options{
		Horizon:                fc.Horizon,
		ModelType:              salesforecaster.ModelType(fc.Model),
		IntervalWidth:          fc.IntervalWidth,
		Confidence:             fc.Confidence,
		ForecastOptions:        &overallOpt,
		SegmentForecastOptions: segOpt,
		AggregateOptions:       &aggregate.Options{FillMissing: c.Input.FillMissing},
		Parallelism:            fc.Parallelism,
	}
	return opt.Validate()
}

func (c *Config) events() []options.MonthEvent {
	fc := c.Forecast
	var events []options.MonthEvent
	if fc.PromoMonth > 0 {
		events = append(events, options.NewMonthEvent(fc.PromoName, time.Month(fc.PromoMonth), fc.PromoRecur, fc.PromoYears...))
	}

	if len(fc.Holidays) == 0 {
		return events
	}
	// holidays are resolved for every year a workbook could plausibly cover
	end := time.Date(time.Now().Year()+1, time.December, 31, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(-20, 0, 0)
	for _, hol := range fc.Holidays {
		switch strings.ToLower(hol) {
		case "christmas":
			events = append(events, options.Christmas(start, end)...)
		case "thanksgiving":
			events = append(events, options.Thanksgiving(start, end)...)
		}
	}
	return events
}

// NewLogger builds a text or JSON slog logger writing to w at the configured level
func NewLogger(cfg LoggingConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("%q, %w", cfg.Level, ErrInvalidLogLevel)
	}

	hopt := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopt)), nil
	default:
		return slog.New(slog.NewTextHandler(w, hopt)), nil
	}
}
