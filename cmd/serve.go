package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khanhnv2901/domaindiag/internal/api"
	"github.com/khanhnv2901/domaindiag/internal/report"
	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serveWriteSlack = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reports over a REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

		builder, err := newReportBuilder(appCtx)
		if err != nil {
			return err
		}

		server := newAPIServer(appCtx, builder)
		defer server.Close()

		httpServer := &http.Server{
			Addr:              cfg.Serve.Addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      serveWriteTimeout(cfg),
			IdleTimeout:       120 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("%s API server listening on %s\n", colorInfo("→"), cfg.Serve.Addr)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)
			appCtx.Logger.Info("shutdown requested", zap.String("signal", sig.String()))

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}
			fmt.Printf("%s Server shutdown complete\n", colorInfo("✓"))
		}
		return nil
	},
}

func newAPIServer(appCtx *AppContext, builder report.ReportBuilder) *api.Server {
	cfg := appCtx.Config
	return api.NewServer(api.Config{
		Builder:     builder,
		Concurrency: cfg.Batch.Concurrency,
		MaxBatch:    cfg.Serve.MaxBatch,
		AuthToken:   cfg.Serve.AuthToken,
		Logger:      appCtx.Logger,
		RateLimit:   cfg.Serve.RateLimit,
		RateBurst:   cfg.Serve.RateBurst,
		TrustProxy:  cfg.Serve.TrustProxy,
		Version:     Version,
	})
}

// serveWriteTimeout leaves room for the slowest batch request: one probe
// timeout per wave of Concurrency domains.
func serveWriteTimeout(cfg *CLIConfig) time.Duration {
	waves := 1
	if c := cfg.Batch.Concurrency; c > 0 && cfg.Serve.MaxBatch > c {
		waves = (cfg.Serve.MaxBatch + c - 1) / c
	}
	return time.Duration(waves)*cfg.ProbeTimeout() + serveWriteSlack
}

func init() {
	serveCmd.Flags().String("addr", defaultServeAddr, "address for the API server")
	serveCmd.Flags().String("auth-token", "", "require this X-Auth-Token on every request")
	serveCmd.Flags().Int("rate-limit", defaultRateLimit, "requests per second per client IP (0 = disabled)")
	serveCmd.Flags().Int("rate-burst", defaultRateBurst, "rate limit burst size")
	serveCmd.Flags().Bool("trust-proxy", false, "rate limit on the first X-Forwarded-For hop (only behind a proxy that sets it)")
	serveCmd.Flags().Int("max-batch", consts.DefaultMaxAPIBatch, "maximum unique domains per batch request")
	serveCmd.Flags().Int("concurrency", 0, "maximum domains in flight per batch request (0 = all at once)")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "graceful shutdown timeout")
}
