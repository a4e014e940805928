// Package report builds per-domain diagnostic reports and aggregates them
// across a batch of domains.
//
// Builder runs the HTTP, certificate and DNS probes for one domain in
// parallel, each bounded by its own timeout, and merges their results into a
// fixed-shape Report. Every probe hands its outcome back over a channel and
// the builder waits for all of them before assembling the Report. A failing or
// panicking probe only degrades its own field to its documented default.
//
// Batch fans the Builder out over many domains and collects the reports in a
// mutex-guarded Aggregate. Run does not return until every domain is done.
package report
