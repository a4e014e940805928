package cmd

import (
	"bytes"
	"context"
	"net/netip"
	"strings"
	"sync"
	"testing"

	"github.com/khanhnv2901/domaindiag/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zaptest"
)

// stubBuilder returns canned reports: domains starting with "down." are
// unreachable, everything else is healthy.
type stubBuilder struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubBuilder) Build(ctx context.Context, domain string) report.Report {
	s.mu.Lock()
	s.calls = append(s.calls, domain)
	s.mu.Unlock()

	if strings.HasPrefix(domain, "down.") {
		return report.Report{}
	}
	return report.Report{
		HTTPStatus: 200,
		CertValid:  true,
		IPs:        []netip.Addr{netip.MustParseAddr("192.0.2.1")},
	}
}

func (s *stubBuilder) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newTestAppContext(t *testing.T) *AppContext {
	t.Helper()
	return &AppContext{Logger: zaptest.NewLogger(t), Config: newCLIConfig()}
}

// isolateEnv points HOME and the data directory at temp dirs so no real
// config or telemetry file is touched.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")
	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)
	return dataDir
}

// executeCommand runs the root command with args and returns combined output.
// Flags are reset first since cobra keeps their values between runs.
func executeCommand(t *testing.T, builder report.ReportBuilder, args ...string) (string, error) {
	t.Helper()
	isolateEnv(t)

	originalBuilder := newReportBuilder
	originalCtx := globalAppContext
	t.Cleanup(func() {
		newReportBuilder = originalBuilder
		globalAppContext = originalCtx
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	if builder != nil {
		newReportBuilder = func(*AppContext) (report.ReportBuilder, error) { return builder, nil }
	}

	resetCommandFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append(args, "--log-level", "error"))

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetCommandFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetCommandFlags(sub)
	}
}
