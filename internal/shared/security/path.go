package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscape indicates the resolved path would leave the data directory.
var ErrPathEscape = errors.New("path escapes base directory")

// ResolveWithin joins elems under base and rejects results outside base.
// The returned path is absolute.
func ResolveWithin(base string, elems ...string) (string, error) {
	if base == "" {
		return "", errors.New("base directory is required")
	}

	cleanBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}

	target, err := filepath.Abs(filepath.Join(append([]string{cleanBase}, elems...)...))
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}

	rel, err := filepath.Rel(cleanBase, target)
	if err != nil {
		return "", fmt.Errorf("relativize path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}

	return target, nil
}

// DataPath places a configured file name under the data directory. Absolute
// paths are an explicit operator choice and are only cleaned; relative ones
// must stay inside dataDir.
func DataPath(dataDir, name string) (string, error) {
	if name == "" {
		return "", errors.New("file name is required")
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}
	return ResolveWithin(dataDir, name)
}
