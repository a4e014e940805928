package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/khanhnv2901/domaindiag/internal/headers"
	"github.com/khanhnv2901/domaindiag/internal/report"
	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// AppContext carries what every command needs after startup.
type AppContext struct {
	Logger *zap.Logger
	Config *CLIConfig

	closeLog func() error
}

type appContextKey struct{}

var (
	cfgFile          string
	globalAppContext *AppContext
)

// newReportBuilder is swapped out in tests.
var newReportBuilder = func(appCtx *AppContext) (report.ReportBuilder, error) {
	opts, err := appCtx.Config.builderOptions(appCtx.Logger)
	if err != nil {
		return nil, err
	}
	return report.NewBuilder(opts), nil
}

var rootCmd = &cobra.Command{
	Use:   "domaindiag",
	Short: "Diagnose domains: HTTP status, edge layer headers, certificate expiry and addresses",
	Long: `domaindiag probes domains over HTTP, TLS and DNS concurrently and
reports the HTTP status, vendor layer version and timing headers, whether the
TLS certificate is unexpired, and the resolved IP addresses.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := newConfigReader(cfgFile)
		if err != nil {
			return err
		}
		cfg, err := loadCLIConfig(cmd.Flags(), v)
		if err != nil {
			return err
		}

		logger, closeLog, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug("config loaded", zap.String("path", used))
		}

		storeAppContext(cmd, &AppContext{Logger: logger, Config: cfg, closeLog: closeLog})
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		if appCtx.closeLog != nil {
			return appCtx.closeLog()
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(1)
	}
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

// getAppContext never returns nil: commands run outside Execute get
// built-in defaults and a no-op logger.
func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil && cmd.Context() != nil {
		if appCtx, ok := cmd.Context().Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	if globalAppContext != nil {
		return globalAppContext
	}
	return &AppContext{Logger: zap.NewNop(), Config: newCLIConfig()}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.domaindiag.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "also write logs to this file, rotated by size")
	flags.Int("timeout", defaultTimeoutSeconds, "per-probe timeout in seconds")
	flags.String("user-agent", consts.DefaultUserAgent, "User-Agent sent by the HTTP probe")
	flags.String("tls-port", consts.DefaultTLSPort, "port the certificate probe connects to")
	flags.StringSlice("nameserver", []string{}, "query these nameservers directly (repeatable, host or host:port)")
	flags.String("resolv-conf", "", "read additional nameservers from a resolv.conf style file")
	flags.String("header-policy", headers.PolicyAbsent.String(), "malformed vendor headers: absent (drop silently) or strict (report field_errors)")
	flags.String("version-header", consts.VersionHeader, "response header carrying the layer version")
	flags.String("timing-header", consts.TimingHeader, "response header carrying the layer timings")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
