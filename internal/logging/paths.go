package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.refdex/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".refdex", "logs")
	}
	return filepath.Join(home, ".refdex", "logs")
}

// DefaultLogPath returns the default log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "refdex.log")
}

// EnsureLogDir creates the directory for the given log path if needed.
func EnsureLogDir(logPath string) error {
	return os.MkdirAll(filepath.Dir(logPath), 0o755)
}
