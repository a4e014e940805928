package report

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/khanhnv2901/domaindiag/internal/headers"
	"github.com/khanhnv2901/domaindiag/internal/probe"
	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
	"go.uber.org/zap"
)

// HTTPProber fetches a domain over HTTP.
type HTTPProber interface {
	Probe(ctx context.Context, domain string) probe.HTTPResult
}

// CertChecker reports whether a domain's TLS certificate is unexpired.
type CertChecker interface {
	Valid(ctx context.Context, domain string) (bool, error)
}

// Resolver resolves a domain to its addresses.
type Resolver interface {
	Resolve(ctx context.Context, domain string) ([]netip.Addr, error)
}

// Builder assembles Reports. It is safe for concurrent use.
type Builder struct {
	HTTP         HTTPProber
	Cert         CertChecker
	DNS          Resolver
	Headers      headers.Decoder
	ProbeTimeout time.Duration // per probe; <= 0 means no extra bound
	Logger       *zap.Logger
}

// Options configures NewBuilder.
type Options struct {
	ProbeTimeout time.Duration
	UserAgent    string
	TLSPort      string
	Nameservers  []string
	HeaderPolicy headers.Policy
	// VersionHeader and TimingHeader override the default vendor header names.
	VersionHeader string
	TimingHeader  string
	Logger        *zap.Logger
}

// NewBuilder wires the real network probes.
func NewBuilder(opts Options) *Builder {
	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = consts.DefaultProbeTimeout
	}

	decoder := headers.NewDecoder(opts.HeaderPolicy)
	if opts.VersionHeader != "" {
		decoder.VersionHeader = opts.VersionHeader
	}
	if opts.TimingHeader != "" {
		decoder.TimingHeader = opts.TimingHeader
	}

	return &Builder{
		HTTP:         probe.NewHTTPProbe(opts.UserAgent),
		Cert:         &probe.CertProbe{Port: opts.TLSPort, Timeout: timeout},
		DNS:          &probe.DNSProbe{Nameservers: opts.Nameservers, Timeout: timeout},
		Headers:      decoder,
		ProbeTimeout: timeout,
		Logger:       opts.Logger,
	}
}

// outcome is what a probe worker sends back to the coordinator.
type outcome[T any] struct {
	value T
	err   error
}

// Build produces the Report for one domain. It never fails: each field falls
// back to its default when its probe does.
func (b *Builder) Build(ctx context.Context, domain string) Report {
	httpCh := launch(ctx, b.ProbeTimeout, probe.HTTPResult{}, func(ctx context.Context) (probe.HTTPResult, error) {
		res := b.HTTP.Probe(ctx, domain)
		return res, res.Err
	})
	certCh := launch(ctx, b.ProbeTimeout, false, func(ctx context.Context) (bool, error) {
		return b.Cert.Valid(ctx, domain)
	})
	dnsCh := launch(ctx, b.ProbeTimeout, []netip.Addr{}, func(ctx context.Context) ([]netip.Addr, error) {
		return b.DNS.Resolve(ctx, domain)
	})

	httpRes, certRes, dnsRes := <-httpCh, <-certCh, <-dnsCh

	log := b.logger().With(zap.String("domain", domain))
	rep := Report{
		HTTPStatus: httpRes.value.Status,
		CertValid:  certRes.value,
		IPs:        dnsRes.value,
	}

	if httpRes.err != nil {
		log.Debug("http probe failed", zap.Error(httpRes.err))
	} else if httpRes.value.Responded() {
		decoded := b.Headers.Decode(httpRes.value.Header)
		rep.LayerVersion = decoded.Version
		rep.LayerTimings = decoded.Timings
		if len(decoded.Errors) > 0 {
			rep.FieldErrors = decoded.Errors
			log.Warn("malformed vendor headers", zap.Any("field_errors", decoded.Errors))
		}
	}
	if certRes.err != nil {
		log.Debug("certificate probe failed", zap.Error(certRes.err))
	}
	if dnsRes.err != nil {
		log.Debug("dns probe failed", zap.Error(dnsRes.err))
	}
	if rep.IPs == nil {
		rep.IPs = []netip.Addr{}
	}

	return rep
}

// launch runs fn on its own goroutine under an optional timeout. On error or
// panic the fallback value is delivered instead of whatever fn returned.
func launch[T any](ctx context.Context, timeout time.Duration, fallback T, fn func(context.Context) (T, error)) <-chan outcome[T] {
	ch := make(chan outcome[T], 1)
	go func() {
		res := outcome[T]{value: fallback}
		defer func() {
			if r := recover(); r != nil {
				res = outcome[T]{value: fallback, err: fmt.Errorf("probe panicked: %v", r)}
			}
			ch <- res
		}()

		probeCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			probeCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		defer cancel()

		value, err := fn(probeCtx)
		if err != nil {
			res.err = err
			return
		}
		res.value = value
	}()
	return ch
}

func (b *Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}
