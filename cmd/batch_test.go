package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/khanhnv2901/domaindiag/internal/report"
	sharedErrors "github.com/khanhnv2901/domaindiag/internal/shared/errors"
)

func init() {
	color.NoColor = true
}

func TestRunBatchPositionalAndFile(t *testing.T) {
	listPath := filepath.Join(t.TempDir(), "domains.txt")
	if err := os.WriteFile(listPath, []byte("# edge fleet\nb.example\ndown.example\na.example\n"), 0o600); err != nil {
		t.Fatalf("write list: %v", err)
	}

	builder := &stubBuilder{}
	var stdout, stderr bytes.Buffer
	results, err := runBatch(context.Background(), newTestAppContext(t), builder,
		batchParams{Domains: []string{"a.example", "c.example"}, File: listPath}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("expected 4 unique domains, got %d", len(results))
	}
	calls := builder.Calls()
	sort.Strings(calls)
	if strings.Join(calls, ",") != "a.example,b.example,c.example,down.example" {
		t.Errorf("each unique domain should be built once, got %v", calls)
	}

	var printed map[string]report.Report
	if err := json.Unmarshal(stdout.Bytes(), &printed); err != nil {
		t.Fatalf("stdout is not a report map: %v\n%s", err, stdout.String())
	}
	if len(printed) != 4 || printed["down.example"].HTTPStatus != 0 {
		t.Errorf("unexpected printed map %+v", printed)
	}

	summary := stderr.String()
	if !strings.Contains(summary, "4 domains") || !strings.Contains(summary, "reachable: 3/4") {
		t.Errorf("unexpected summary %q", summary)
	}
}

func TestRunBatchSourceURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["x.example","y.example","x.example"]`))
	}))
	defer server.Close()

	appCtx := newTestAppContext(t)
	appCtx.Config.Source.URL = server.URL

	results, err := runBatch(context.Background(), appCtx, &stubBuilder{}, batchParams{}, &bytes.Buffer{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 domains from the source, got %v", results)
	}
}

func TestRunBatchSourceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	appCtx := newTestAppContext(t)
	appCtx.Config.Source.URL = server.URL
	appCtx.Config.Source.Retries = 1
	appCtx.Config.Source.WaitMinMS = 1
	appCtx.Config.Source.WaitMaxMS = 2

	_, err := runBatch(context.Background(), appCtx, &stubBuilder{}, batchParams{}, &bytes.Buffer{}, &bytes.Buffer{})
	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceError, got %v", err)
	}
	if !errors.Is(err, sharedErrors.ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable in chain, got %v", err)
	}
}

func TestRunBatchMissingFile(t *testing.T) {
	_, err := runBatch(context.Background(), newTestAppContext(t), &stubBuilder{},
		batchParams{File: filepath.Join(t.TempDir(), "missing.txt")}, &bytes.Buffer{}, &bytes.Buffer{})
	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceError, got %v", err)
	}
}

func TestRunBatchNoDomains(t *testing.T) {
	_, err := runBatch(context.Background(), newTestAppContext(t), &stubBuilder{},
		batchParams{Domains: []string{" ", ""}}, &bytes.Buffer{}, &bytes.Buffer{})
	if !errors.Is(err, sharedErrors.ErrNoDomains) {
		t.Fatalf("expected ErrNoDomains, got %v", err)
	}
}

func TestRunBatchOutputsAndStream(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "results.json")
	streamPath := filepath.Join(dir, "stream.ndjson")

	var stdout, stderr bytes.Buffer
	_, err := runBatch(context.Background(), newTestAppContext(t), &stubBuilder{}, batchParams{
		Domains:    []string{"a.example", "down.example", "b.example"},
		OutPath:    outPath,
		NDJSONPath: streamPath,
		Progress:   true,
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stdout.Len() != 0 {
		t.Errorf("stdout should stay empty with --output, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "[batch] Progress: 3/3") {
		t.Errorf("expected final progress line, got %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "results written to "+outPath) {
		t.Errorf("expected output path in summary, got %q", stderr.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	var written map[string]json.RawMessage
	if err := json.Unmarshal(data, &written); err != nil || len(written) != 3 {
		t.Fatalf("unexpected results file (%v):\n%s", err, data)
	}

	f, err := os.Open(streamPath)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer f.Close()

	seen := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec struct {
			Domain string        `json:"domain"`
			Report report.Report `json:"report"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad ndjson line %q: %v", scanner.Text(), err)
		}
		seen[rec.Domain] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected one stream line per domain, got %v", seen)
	}
}

func TestRunBatchStreamToStdout(t *testing.T) {
	var stdout bytes.Buffer
	_, err := runBatch(context.Background(), newTestAppContext(t), &stubBuilder{}, batchParams{
		Domains:    []string{"a.example", "b.example"},
		NDJSONPath: ndjsonStdout,
	}, &stdout, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected only the two stream lines on stdout, got %q", stdout.String())
	}
	seen := map[string]bool{}
	for _, line := range lines {
		var rec struct {
			Domain string `json:"domain"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad ndjson line %q: %v", line, err)
		}
		seen[rec.Domain] = true
	}
	if !seen["a.example"] || !seen["b.example"] {
		t.Errorf("unexpected stream domains %v", seen)
	}
}

func TestRunBatchTelemetry(t *testing.T) {
	dataDir := isolateEnv(t)

	appCtx := newTestAppContext(t)
	appCtx.Config.Telemetry.Enabled = true

	_, err := runBatch(context.Background(), appCtx, &stubBuilder{},
		batchParams{Domains: []string{"a.example", "down.example"}}, &bytes.Buffer{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, defaultTelemetryFile))
	if err != nil {
		t.Fatalf("telemetry file missing: %v", err)
	}
	var rec telemetryRecord
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("bad telemetry line: %v", err)
	}
	if rec.Command != "batch" || rec.DomainCount != 2 || rec.ReachableCount != 1 {
		t.Errorf("unexpected telemetry record %+v", rec)
	}
}

func TestBatchCommand(t *testing.T) {
	builder := &stubBuilder{}
	out, err := executeCommand(t, builder, "batch", "a.example", "b.example", "a.example", "--concurrency", "1")
	if err != nil {
		t.Fatalf("batch failed: %v\n%s", err, out)
	}
	if len(builder.Calls()) != 2 {
		t.Errorf("expected 2 builds, got %v", builder.Calls())
	}
	if !strings.Contains(out, `"a.example": {`) || !strings.Contains(out, "2 domains") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestBatchCommandWithoutDomains(t *testing.T) {
	_, err := executeCommand(t, &stubBuilder{}, "batch")
	if !errors.Is(err, sharedErrors.ErrNoDomains) {
		t.Fatalf("expected ErrNoDomains, got %v", err)
	}
}
