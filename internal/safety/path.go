package safety

import (
	"fmt"
	"os"
	"path/filepath"
)

// ValidateOutputPath verifies that path is usable as a mirrorlist
// destination: non-empty, not an existing directory, and with an
// existing parent directory. It returns the absolute normalized path.
func ValidateOutputPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("output path is empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}

	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return "", fmt.Errorf("output path is a directory: %q", abs)
	}

	parent := filepath.Dir(abs)
	fi, err := os.Stat(parent)
	if err != nil {
		return "", fmt.Errorf("output directory does not exist: %q", parent)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("output parent is not a directory: %q", parent)
	}

	return abs, nil
}
