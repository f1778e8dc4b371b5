package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-train-punctuality/config"
	"github.com/aluiziolira/go-train-punctuality/extract"
	"github.com/aluiziolira/go-train-punctuality/models"
)

func newParseCmd(opts *options) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "parse <file.html>...",
		Short: "Extract records from saved report pages",
		Long: `parse reads saved copies of the report pages and exports the records they
contain. Files are extracted concurrently; each file is stamped with --source
or, when unset, with its file name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			return runParse(cmd, cfg, args, source)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Source name stamped on every record")
	return cmd
}

func runParse(cmd *cobra.Command, cfg *config.Config, paths []string, source string) error {
	startTime := time.Now()
	docs := make([]extract.Document, 0, len(paths))
	for _, path := range paths {
		markup, err := os.ReadFile(path) //nolint:gosec // user-provided input path
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		name := source
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		docs = append(docs, extract.Document{Name: name, Markup: markup})
	}

	extractor := extract.NewExtractor(extract.Options{Strict: cfg.StrictPeriods})
	results, extractErr := extractor.ExtractAll(cmd.Context(), docs, cfg.Parallelism)
	if extractErr != nil {
		slog.Error("extraction finished with errors", slog.Any("error", extractErr))
	}

	scrapeResult := &models.ScrapeResult{StartTime: startTime}
	for i, result := range results {
		summary := models.SourceSummary{Name: docs[i].Name, URL: paths[i]}
		if result != nil {
			summary.Tables = result.Tables
			summary.Records = len(result.Records)
			summary.RowsSkipped = result.RowsSkipped
			summary.Warnings = len(result.Warnings)
			scrapeResult.Records = append(scrapeResult.Records, result.Records...)
		} else {
			scrapeResult.ErrorCount++
		}
		scrapeResult.Sources = append(scrapeResult.Sources, summary)
	}
	scrapeResult.EndTime = time.Now()

	if len(scrapeResult.Records) == 0 {
		return errors.Join(extractErr, errEmptyDataset)
	}

	metrics, exportErr := export(cmd.Context(), cfg, scrapeResult.Records)
	printSummary(cmd.OutOrStdout(), summary{
		result:     scrapeResult,
		duration:   time.Since(startTime),
		outputFile: cfg.OutputFile,
		metrics:    metrics,
	})
	return errors.Join(extractErr, exportErr)
}
