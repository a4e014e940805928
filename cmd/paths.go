package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
	"github.com/khanhnv2901/domaindiag/internal/shared/security"
)

const (
	appDirName    = "domaindiag"
	dataDirEnvVar = "DOMAINDIAG_DATA_DIR"
)

// getDataDir returns the per-user data directory, honoring
// DOMAINDIAG_DATA_DIR and XDG_DATA_HOME. It is created on demand.
func getDataDir() (string, error) {
	baseDir := os.Getenv(dataDirEnvVar)

	if baseDir == "" {
		switch runtime.GOOS {
		case "windows":
			root := os.Getenv("LOCALAPPDATA")
			if root == "" {
				root = os.Getenv("APPDATA")
			}
			if root == "" {
				return "", fmt.Errorf("could not determine Windows data directory")
			}
			baseDir = filepath.Join(root, appDirName)
		case "darwin":
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine home directory: %w", err)
			}
			baseDir = filepath.Join(home, "Library", "Application Support", appDirName)
		default:
			if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
				baseDir = filepath.Join(xdg, appDirName)
			} else {
				home, err := os.UserHomeDir()
				if err != nil {
					return "", fmt.Errorf("could not determine home directory: %w", err)
				}
				baseDir = filepath.Join(home, ".local", "share", appDirName)
			}
		}
	}

	if err := os.MkdirAll(baseDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return baseDir, nil
}

// telemetryPath places the configured telemetry file under the data dir.
func telemetryPath(cfg TelemetryConfig) (string, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}
	name := cfg.Path
	if name == "" {
		name = defaultTelemetryFile
	}
	path, err := security.DataPath(dataDir, name)
	if err != nil {
		return "", &InvalidInputError{Field: "telemetry.path", Err: err}
	}
	return path, nil
}
