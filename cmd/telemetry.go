package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khanhnv2901/domaindiag/internal/report"
	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
)

type telemetryRecord struct {
	Timestamp            time.Time `json:"timestamp"`
	Command              string    `json:"command"`
	DomainCount          int       `json:"domain_count"`
	ReachableCount       int       `json:"reachable_count"`
	ValidCertCount       int       `json:"valid_cert_count"`
	ResolvedCount        int       `json:"resolved_count"`
	DurationSeconds      float64   `json:"duration_seconds"`
	AvgDurationPerDomain float64   `json:"avg_duration_per_domain"`
}

// batchSummary counts the healthy fields across a batch result.
type batchSummary struct {
	Total     int
	Reachable int
	ValidCert int
	Resolved  int
}

func summarizeReports(results map[string]report.Report) batchSummary {
	s := batchSummary{Total: len(results)}
	for _, r := range results {
		if r.Reachable() {
			s.Reachable++
		}
		if r.CertValid {
			s.ValidCert++
		}
		if len(r.IPs) > 0 {
			s.Resolved++
		}
	}
	return s
}

// recordTelemetry appends one JSON line describing a batch run to path.
func recordTelemetry(path, command string, results map[string]report.Report, duration time.Duration) error {
	summary := summarizeReports(results)

	avg := 0.0
	if summary.Total > 0 {
		avg = duration.Seconds() / float64(summary.Total)
	}

	record := telemetryRecord{
		Timestamp:            time.Now().UTC(),
		Command:              command,
		DomainCount:          summary.Total,
		ReachableCount:       summary.Reachable,
		ValidCertCount:       summary.ValidCert,
		ResolvedCount:        summary.Resolved,
		DurationSeconds:      duration.Seconds(),
		AvgDurationPerDomain: avg,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), consts.DefaultDirPerm); err != nil {
		return fmt.Errorf("create telemetry dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}
	return nil
}
