package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-train-punctuality/config"
	"github.com/aluiziolira/go-train-punctuality/models"
	"github.com/aluiziolira/go-train-punctuality/pipeline"
)

var errEmptyDataset = errors.New("no records extracted")

type options struct {
	configFile  string
	categories  []string
	output      string
	format      string
	verbose     bool
	strict      bool
	parallel    int
	metricsAddr string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&options{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "punctuality",
		Short: "Extract DSB train punctuality statistics from the published report",
		Long: `punctuality downloads the DSB punctuality report pages (or reads saved
copies), locates the monthly tables and exports one record per route and month.

Usage:
  punctuality scrape --category regional,s-train -o output/data.csv
  punctuality parse saved-report.html --format markdown -o report.md`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file (default: ./"+config.DefaultConfigFile+" or the XDG config dir)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output file path")
	flags.StringVarP(&opts.format, "format", "f", "", "Output format: csv, json, dual, or markdown")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&opts.strict, "strict", false, "Fail on tables that appear before any year heading")
	flags.IntVar(&opts.parallel, "parallel", 0, "Number of concurrent requests or documents")

	root.AddCommand(newScrapeCmd(opts), newParseCmd(opts))
	return root
}

// loadConfig layers defaults, the config file, PUNCTUALITY_* env vars and
// explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()

	path := opts.configFile
	if path == "" {
		path = config.FindConfigFile("")
	}
	if path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		slog.Debug("loaded config file", slog.String("path", path))
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("category") {
		cfg.Categories = opts.categories
	}
	if flags.Changed("output") {
		cfg.OutputFile = opts.output
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(opts.format)
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if flags.Changed("strict") {
		cfg.StrictPeriods = opts.strict
	}
	if flags.Changed("parallel") {
		cfg.Parallelism = opts.parallel
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		return pipeline.NewDualWriter(filename, pipeline.JSONPathFor(filename))
	case "markdown":
		return pipeline.NewMarkdownWriter(filename, "")
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// export pushes records through the validation pipeline into the configured
// writer and returns the pipeline counters.
func export(ctx context.Context, cfg *config.Config, records models.Dataset) (map[string]interface{}, error) {
	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(cfg.PipelineWorkers)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	var errs []error
	if err := p.Process(records...); err != nil {
		errs = append(errs, fmt.Errorf("queue records: %w", err))
	}
	if err := p.Close(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline shutdown: %w", err))
	}
	if err := writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}
	if len(errs) == 0 {
		if err := writer.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("output validation: %w", err))
		}
	}
	return p.GetMetrics(), errors.Join(errs...)
}

type summary struct {
	result     *models.ScrapeResult
	duration   time.Duration
	outputFile string
	metrics    map[string]interface{}
}

func printSummary(w io.Writer, s summary) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Extraction complete")

	totalItems := int64(0)
	if processed, ok := s.metrics["processed_records"].(int64); ok {
		totalItems = processed
	}
	result := s.result

	fmt.Fprintf(w, "  Records:       %d\n", totalItems)
	fmt.Fprintf(w, "  Routes:        %d\n", len(result.Records.Routes()))
	for _, src := range result.Sources {
		cached := ""
		if src.Cached {
			cached = " (cached)"
		}
		fmt.Fprintf(w, "  %-14s %d records, %d tables, %d rows skipped, %d warnings%s\n",
			src.Name+":", src.Records, src.Tables, src.RowsSkipped, src.Warnings, cached)
	}
	if result.RequestCount > 0 {
		successRate := float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
		fmt.Fprintf(w, "  Success rate:  %.2f%%\n", successRate)
		fmt.Fprintf(w, "  Retries:       %d\n", result.RetryCount)
	}
	fmt.Fprintf(w, "  Errors:        %d\n", result.ErrorCount)
	fmt.Fprintf(w, "  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:   %v\n", result.ErrorsByType)
	}
	if valErrors, ok := s.metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Fprintf(w, "  Validation:    %v\n", valErrors)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", s.duration)
	if s.outputFile != "" {
		fmt.Fprintf(w, "  Output file:   %s\n", s.outputFile)
	}
	fmt.Fprintln(w, separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
