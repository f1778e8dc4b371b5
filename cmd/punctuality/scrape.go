package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-train-punctuality/config"
	"github.com/aluiziolira/go-train-punctuality/scraper"
)

func newScrapeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Download the selected report categories and export the records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			return runScrape(cmd, cfg)
		},
	}
	cmd.Flags().StringSliceVarP(&opts.categories, "category", "c", nil, "Report categories to fetch (regional, s-train)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	return cmd
}

func runScrape(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	sources, err := cfg.SelectedSources()
	if err != nil {
		return err
	}

	slog.Info("starting scrape",
		slog.Any("categories", cfg.Categories),
		slog.Int("workers", cfg.Parallelism),
		slog.Bool("strict", cfg.StrictPeriods),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	startTime := time.Now()
	result, runErr := s.Run(ctx, sources)
	if runErr != nil {
		slog.Error("scraping finished with errors", slog.Any("error", runErr))
	}
	if len(result.Records) == 0 {
		return errors.Join(runErr, errEmptyDataset)
	}

	metrics, exportErr := export(ctx, cfg, result.Records)
	printSummary(cmd.OutOrStdout(), summary{
		result:     result,
		duration:   time.Since(startTime),
		outputFile: cfg.OutputFile,
		metrics:    metrics,
	})
	return errors.Join(runErr, exportErr)
}
