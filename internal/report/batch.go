package report

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ReportBuilder builds one Report. *Builder satisfies it.
type ReportBuilder interface {
	Build(ctx context.Context, domain string) Report
}

// Aggregate is the domain -> Report map shared by batch workers.
type Aggregate struct {
	mu      sync.Mutex
	reports map[string]Report
}

// NewAggregate returns an empty aggregate sized for n domains.
func NewAggregate(n int) *Aggregate {
	return &Aggregate{reports: make(map[string]Report, n)}
}

// Insert stores the report for a domain.
func (a *Aggregate) Insert(domain string, r Report) {
	a.mu.Lock()
	a.reports[domain] = r
	a.mu.Unlock()
}

// Snapshot returns a copy of the stored reports.
func (a *Aggregate) Snapshot() map[string]Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]Report, len(a.reports))
	for domain, r := range a.reports {
		out[domain] = r
	}
	return out
}

// Batch runs a ReportBuilder over many domains.
type Batch struct {
	Builder ReportBuilder
	// Concurrency caps in-flight domains; <= 0 starts every domain at once.
	Concurrency int
	// OnReport, if set, is called from the worker after each insert.
	OnReport func(domain string, r Report, elapsed time.Duration)
}

// Run builds a report for every unique domain and returns once all are done.
// Domains are keyed as UniqueDomains normalizes them: surrounding whitespace
// is trimmed, so " a.com" comes back under "a.com", blank entries get no
// report, and repeats share one entry.
func (b *Batch) Run(ctx context.Context, domains []string) map[string]Report {
	unique := UniqueDomains(domains)
	agg := NewAggregate(len(unique))

	var g errgroup.Group
	if b.Concurrency > 0 {
		g.SetLimit(b.Concurrency)
	}

	for _, domain := range unique {
		domain := domain
		g.Go(func() error {
			start := time.Now()
			r := b.Builder.Build(ctx, domain)
			agg.Insert(domain, r)
			if b.OnReport != nil {
				b.OnReport(domain, r, time.Since(start))
			}
			return nil
		})
	}

	_ = g.Wait() // workers never return errors
	return agg.Snapshot()
}

// UniqueDomains trims entries, drops blanks and collapses duplicates,
// keeping first-seen order.
func UniqueDomains(domains []string) []string {
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
