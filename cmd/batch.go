package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/khanhnv2901/domaindiag/internal/output"
	"github.com/khanhnv2901/domaindiag/internal/report"
	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/domaindiag/internal/shared/errors"
	"github.com/khanhnv2901/domaindiag/internal/source"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ndjsonStdout as the --ndjson target streams lines to stdout.
const ndjsonStdout = "-"

type batchParams struct {
	Domains    []string
	File       string
	OutPath    string
	NDJSONPath string
	Progress   bool
}

var batchCmd = &cobra.Command{
	Use:   "batch [domains...]",
	Short: "Build reports for many domains concurrently",
	Long: `Build reports for every domain given as an argument, listed in --file
(one per line, # comments allowed), or served by --source-url as a JSON array
of strings. Duplicates are collapsed; the result maps each domain to its report.`,
	Example: `  domaindiag batch a.example b.example
  domaindiag batch --file domains.txt --concurrency 20 --progress
  domaindiag batch --source-url https://lists.example/domains.json --ndjson stream.ndjson`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		params := batchParams{Domains: args}
		params.File, _ = cmd.Flags().GetString("file")
		params.OutPath, _ = cmd.Flags().GetString("output")
		params.NDJSONPath, _ = cmd.Flags().GetString("ndjson")
		params.Progress, _ = cmd.Flags().GetBool("progress")

		builder, err := newReportBuilder(appCtx)
		if err != nil {
			return err
		}
		_, err = runBatch(cmd.Context(), appCtx, builder, params, cmd.OutOrStdout(), cmd.ErrOrStderr())
		return err
	},
}

func runBatch(ctx context.Context, appCtx *AppContext, builder report.ReportBuilder, params batchParams, stdout, stderr io.Writer) (map[string]report.Report, error) {
	cfg := appCtx.Config
	log := appCtx.Logger

	domains, err := collectDomains(ctx, appCtx, params)
	if err != nil {
		return nil, err
	}

	var stream *output.NDJSONWriter
	switch params.NDJSONPath {
	case "":
	case ndjsonStdout:
		stream = output.NewNDJSONWriter(stdout)
	default:
		stream, err = output.OpenNDJSON(params.NDJSONPath)
		if err != nil {
			return nil, err
		}
		defer stream.Close()
	}

	var progress *progressPrinter
	if params.Progress {
		progress = newProgressPrinter(stderr, len(domains), "batch")
		progress.Start()
	}

	batch := report.Batch{
		Builder:     builder,
		Concurrency: cfg.Batch.Concurrency,
		OnReport: func(domain string, r report.Report, elapsed time.Duration) {
			if progress != nil {
				progress.Increment(r.Reachable(), elapsed.Seconds())
			}
			if err := stream.WriteReport(domain, r); err != nil {
				log.Warn("ndjson write failed", zap.String("domain", domain), zap.Error(err))
			}
		},
	}

	log.Info("batch started", zap.Int("domains", len(domains)), zap.Int("concurrency", cfg.Batch.Concurrency))
	start := time.Now()
	results := batch.Run(ctx, domains)
	elapsed := time.Since(start)
	if progress != nil {
		progress.Stop()
	}
	log.Info("batch finished", zap.Int("reports", len(results)), zap.Duration("duration", elapsed))

	// A stdout stream already carries every report; the aggregate map would
	// break line-oriented consumers.
	switch {
	case params.OutPath != "":
		if err := output.WriteFileAtomic(params.OutPath, results); err != nil {
			return nil, fmt.Errorf("write results: %w", err)
		}
	case params.NDJSONPath == ndjsonStdout:
	default:
		if err := output.WriteJSON(stdout, results); err != nil {
			return nil, err
		}
	}

	printBatchSummary(stderr, summarizeReports(results), elapsed, params.OutPath)

	if cfg.Telemetry.Enabled {
		path, err := telemetryPath(cfg.Telemetry)
		if err == nil {
			err = recordTelemetry(path, "batch", results, elapsed)
		}
		if err != nil {
			log.Warn("telemetry not recorded", zap.Error(err))
		}
	}

	return results, nil
}

// collectDomains merges positional domains, --file and --source-url, in that
// order, and collapses duplicates.
func collectDomains(ctx context.Context, appCtx *AppContext, params batchParams) ([]string, error) {
	cfg := appCtx.Config
	all := append([]string(nil), params.Domains...)

	if params.File != "" {
		fromFile, err := source.ReadFile(params.File)
		if err != nil {
			return nil, &SourceError{Source: params.File, Err: err}
		}
		all = append(all, fromFile...)
	}

	if cfg.Source.URL != "" {
		fetcher := source.NewFetcher(cfg.Source.URL, appCtx.Logger)
		fetcher.Retries = cfg.Source.Retries
		fetcher.WaitMin = time.Duration(cfg.Source.WaitMinMS) * time.Millisecond
		fetcher.WaitMax = time.Duration(cfg.Source.WaitMaxMS) * time.Millisecond

		fromURL, err := fetcher.Fetch(ctx)
		if err != nil {
			return nil, &SourceError{Source: cfg.Source.URL, Err: err}
		}
		all = append(all, fromURL...)
	}

	domains := report.UniqueDomains(all)
	if len(domains) == 0 {
		return nil, &InvalidInputError{Field: "domains", Err: sharedErrors.ErrNoDomains}
	}
	return domains, nil
}

func printBatchSummary(w io.Writer, s batchSummary, elapsed time.Duration, outPath string) {
	fmt.Fprintf(w, "%s %d domains in %s\n", colorSuccess("✓"), s.Total, elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  reachable: %s  valid certs: %s  resolved: %s\n",
		formatRatio(s.Reachable, s.Total),
		formatRatio(s.ValidCert, s.Total),
		formatRatio(s.Resolved, s.Total))
	if outPath != "" {
		fmt.Fprintf(w, "%s results written to %s\n", colorInfo("→"), outPath)
	}
}

func init() {
	batchCmd.Flags().String("file", "", "read domains from this file, one per line")
	batchCmd.Flags().String("source-url", "", "fetch domains from this URL (JSON array of strings)")
	batchCmd.Flags().Int("source-retries", consts.DefaultSourceRetries, "retries for --source-url on transient failures")
	batchCmd.Flags().String("output", "", "write the result map to this file instead of stdout")
	batchCmd.Flags().String("ndjson", "", "append one {\"domain\",\"report\"} line per finished domain to this file (\"-\" streams to stdout)")
	batchCmd.Flags().Bool("progress", false, "show a live progress line on stderr")
	batchCmd.Flags().Int("concurrency", 0, "maximum domains in flight (0 = all at once)")
	batchCmd.Flags().Bool("telemetry", false, "append run metrics to the telemetry file")
}
