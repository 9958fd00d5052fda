package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DataDirEnv overrides the default data directory when set.
const DataDirEnv = "ROUTING_DATA_DIR"

// DefaultDataDir returns a per-user directory for the node's identity store.
// Precedence: ROUTING_DATA_DIR, os.UserConfigDir, then the current directory.
func DefaultDataDir() string {
	if v := strings.TrimSpace(os.Getenv(DataDirEnv)); v != "" {
		return filepath.Clean(v)
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "routing")
	}
	return ".routing"
}

// EnsureDir makes sure dir exists and returns the cleaned path.
func EnsureDir(dir string) (string, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
