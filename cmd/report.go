package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/khanhnv2901/domaindiag/internal/output"
	"github.com/khanhnv2901/domaindiag/internal/report"
	sharedErrors "github.com/khanhnv2901/domaindiag/internal/shared/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reportCmd = &cobra.Command{
	Use:   "report <domain>",
	Short: "Build the diagnostic report for one domain",
	Example: `  domaindiag report example.com
  domaindiag report https://example.com --header-policy strict
  domaindiag report example.com --nameserver 1.1.1.1 --output report.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		outPath, _ := cmd.Flags().GetString("output")

		builder, err := newReportBuilder(appCtx)
		if err != nil {
			return err
		}
		return runReport(cmd.Context(), appCtx, builder, args[0], outPath, cmd.OutOrStdout())
	},
}

func runReport(ctx context.Context, appCtx *AppContext, builder report.ReportBuilder, domain, outPath string, stdout io.Writer) error {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return &InvalidInputError{Field: "domain", Err: sharedErrors.ErrEmptyDomain}
	}

	appCtx.Logger.Info("building report", zap.String("domain", domain))
	rep := builder.Build(ctx, domain)

	if outPath != "" {
		if err := output.WriteFileAtomic(outPath, rep); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		appCtx.Logger.Info("report written", zap.String("path", outPath))
		return nil
	}
	return output.WriteJSON(stdout, rep)
}

func init() {
	reportCmd.Flags().String("output", "", "write the report to this file instead of stdout")
}
