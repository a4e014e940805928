package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"

	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
)

// HTTPResult is the outcome of one HTTP probe.
type HTTPResult struct {
	Status uint16
	// Header is nil when no response was obtained.
	Header http.Header
	Err    error
}

// Responded reports whether a response (of any status) was captured.
func (r HTTPResult) Responded() bool {
	return r.Header != nil
}

// HTTPProbe performs a single GET against a domain.
type HTTPProbe struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPProbe returns a probe using a dedicated client. Deadlines come from the caller's context.
func NewHTTPProbe(userAgent string) *HTTPProbe {
	return &HTTPProbe{
		Client:    &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		UserAgent: userAgent,
	}
}

// Probe issues the GET. Non-2xx statuses are returned as data, not errors.
func (p *HTTPProbe) Probe(ctx context.Context, domain string) HTTPResult {
	target := ParseTarget(domain)
	if target.Host == "" {
		return HTTPResult{Err: fmt.Errorf("no host in %q", domain)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return HTTPResult{Err: fmt.Errorf("create request: %w", err)}
	}
	userAgent := p.UserAgent
	if userAgent == "" {
		userAgent = consts.DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return HTTPResult{Err: err}
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused; errors here don't matter.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, consts.BodyDrainLimitBytes))

	header := resp.Header
	if header == nil {
		header = http.Header{}
	}

	return HTTPResult{
		Status: uint16(resp.StatusCode),
		Header: header,
	}
}
