package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
)

// Record is one NDJSON line of a batch stream.
type Record struct {
	Domain string `json:"domain"`
	Report any    `json:"report"`
}

// NDJSONWriter appends one JSON document per line. Safe for concurrent use;
// each line is written with a single Write call.
type NDJSONWriter struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewNDJSONWriter wraps w. Close does not close w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{w: w}
}

// OpenNDJSON opens path for appending, creating parent directories.
func OpenNDJSON(path string) (*NDJSONWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), consts.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("create ndjson dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return nil, fmt.Errorf("open ndjson file: %w", err)
	}
	return &NDJSONWriter{w: f, closer: f}, nil
}

// Write encodes v as a single line.
func (n *NDJSONWriter) Write(v any) error {
	if n == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal ndjson record: %w", err)
	}
	b = append(b, '\n')

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.w == nil {
		return nil
	}
	_, err = n.w.Write(b)
	return err
}

// WriteReport writes a {"domain":…,"report":…} line.
func (n *NDJSONWriter) WriteReport(domain string, report any) error {
	return n.Write(Record{Domain: domain, Report: report})
}

func (n *NDJSONWriter) Close() error {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	n.w = nil
	if n.closer != nil {
		err := n.closer.Close()
		n.closer = nil
		return err
	}
	return nil
}
