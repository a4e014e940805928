package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/domaindiag/internal/shared/errors"
	"go.uber.org/zap"
)

// Fetcher downloads a JSON array of domain names. Attempts are bounded and
// spaced with exponential backoff so an unavailable source is never polled
// in a tight loop.
type Fetcher struct {
	URL     string
	Retries int           // retries after the first attempt
	WaitMin time.Duration // first backoff delay
	WaitMax time.Duration // backoff ceiling
	// HTTPClient overrides the underlying transport client (tests, proxies).
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewFetcher returns a Fetcher with the default retry bounds.
func NewFetcher(url string, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		URL:     url,
		Retries: consts.DefaultSourceRetries,
		WaitMin: consts.DefaultSourceWaitMin,
		WaitMax: consts.DefaultSourceWaitMax,
		Logger:  logger,
	}
}

// Fetch retrieves and validates the domain list.
func (f *Fetcher) Fetch(ctx context.Context) ([]string, error) {
	if strings.TrimSpace(f.URL) == "" {
		return nil, fmt.Errorf("%w: no source URL configured", sharedErrors.ErrSourceUnavailable)
	}

	client := f.client()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create source request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s returned status %d", sharedErrors.ErrSourceUnavailable, f.URL, resp.StatusCode)
	}

	return decodeList(io.LimitReader(resp.Body, consts.SourceBodyLimitBytes))
}

func (f *Fetcher) client() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = max(f.Retries, 0)
	if f.WaitMin > 0 {
		client.RetryWaitMin = f.WaitMin
	}
	if f.WaitMax > 0 {
		client.RetryWaitMax = f.WaitMax
	}
	if client.RetryWaitMax < client.RetryWaitMin {
		client.RetryWaitMax = client.RetryWaitMin
	}
	if f.HTTPClient != nil {
		client.HTTPClient = f.HTTPClient
	}
	client.Logger = leveledLogger{f.logger().Sugar()}
	return client
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

func decodeList(r io.Reader) ([]string, error) {
	var raw []string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidSourcePayload, err)
		}
		return nil, fmt.Errorf("read domain list: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: null", sharedErrors.ErrInvalidSourcePayload)
	}

	domains := make([]string, 0, len(raw))
	for _, d := range raw {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return domains, nil
}

// leveledLogger adapts zap to retryablehttp's LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
