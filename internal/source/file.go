package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadFile loads domains from a text file, one per line.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domain file: %w", err)
	}
	defer f.Close()

	return ParseList(f)
}

// ParseList reads one domain per line. Blank lines and lines starting with
// '#' are skipped; trailing "# comment" text is dropped.
func ParseList(r io.Reader) ([]string, error) {
	var domains []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			domains = append(domains, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read domain list: %w", err)
	}
	return domains, nil
}
