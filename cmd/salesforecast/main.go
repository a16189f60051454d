package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aouyang1/go-salesforecaster"
	"github.com/aouyang1/go-salesforecaster/internal/config"
	"github.com/aouyang1/go-salesforecaster/salesdata"
	getopt "github.com/pborman/getopt/v2"
	"github.com/pkg/profile"
)

const (
	reportFile = "report.json"
	htmlFile   = "forecast.html"
)

type flags struct {
	config     string
	input      string
	out        string
	model      string
	horizon    int
	png        bool
	cpuprofile string
	help       bool
}

func newFlagSet(f *flags) *getopt.Set {
	set := getopt.New()
	set.SetProgram("salesforecast")
	set.SetParameters("")
	set.FlagLong(&f.config, "config", 'c', "path to the YAML configuration file")
	set.FlagLong(&f.input, "input", 'i', "path to the sales workbook")
	set.FlagLong(&f.out, "out", 'o', "directory to write the report and charts to")
	set.FlagLong(&f.model, "model", 'm', "model to fit, regression or linear")
	set.FlagLong(&f.horizon, "horizon", 'n', "number of months to forecast")
	set.FlagLong(&f.png, "png", 0, "also render a PNG chart per series")
	set.FlagLong(&f.cpuprofile, "cpuprofile", 0, "directory to write a CPU profile to")
	set.FlagLong(&f.help, "help", 'h', "show this help")
	return set
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var f flags
	set := newFlagSet(&f)
	if err := set.Getopt(args, nil); err != nil {
		fmt.Fprintln(stderr, err)
		set.PrintUsage(stderr)
		return 2
	}
	if f.help {
		set.PrintUsage(stdout)
		return 0
	}

	if f.cpuprofile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(f.cpuprofile), profile.Quiet).Stop()
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	applyFlags(cfg, &f)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger, err := config.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	slog.SetDefault(logger)

	if err := forecastWorkbook(cfg, stdout); err != nil {
		logger.Error("forecast failed", "input", cfg.Input.Path, "error", err)
		return 1
	}
	return 0
}

func applyFlags(cfg *config.Config, f *flags) {
	if f.input != "" {
		cfg.Input.Path = f.input
	}
	if f.out != "" {
		cfg.Output.Dir = f.out
	}
	if f.model != "" {
		cfg.Forecast.Model = f.model
	}
	if f.horizon != 0 {
		cfg.Forecast.Horizon = f.horizon
	}
	if f.png {
		cfg.Output.PNG = true
	}
}

func forecastWorkbook(cfg *config.Config, stdout io.Writer) error {
	ds, err := salesdata.Load(cfg.Input.Path, cfg.Columns())
	if err != nil {
		return err
	}
	slog.Info("loaded workbook", "path", cfg.Input.Path, "records", len(ds.Records), "segments", len(ds.Segments))

	opt, err := cfg.ForecasterOptions()
	if err != nil {
		return err
	}
	fc, err := salesforecaster.New(opt)
	if err != nil {
		return err
	}

	report, err := fc.Run(ds, cfg.Metrics(), cfg.Input.SegmentMetric)
	if err != nil {
		return err
	}

	if err := writeOutputs(cfg.Output, report); err != nil {
		return err
	}
	return report.TablePrint(stdout)
}

func writeOutputs(cfg config.OutputConfig, report *salesforecaster.Report) error {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("unable to create output directory, %w", err)
	}

	data, err := salesforecaster.MarshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(cfg.Dir, reportFile), data, 0o644); err != nil {
		return err
	}

	if cfg.HTML {
		if err := writeHTML(filepath.Join(cfg.Dir, htmlFile), report); err != nil {
			return err
		}
	}

	if !cfg.PNG {
		return nil
	}
	imgs, err := report.PNGs()
	if err != nil {
		return err
	}
	for name, img := range imgs {
		if err := os.WriteFile(filepath.Join(cfg.Dir, name), img, 0o644); err != nil {
			return err
		}
	}
	slog.Info("wrote charts", "dir", cfg.Dir, "count", len(imgs))
	return nil
}

func writeHTML(path string, report *salesforecaster.Report) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	return report.WriteHTML(file)
}
