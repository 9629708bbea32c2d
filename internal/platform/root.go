package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ConfigFileName is the per-project configuration file looked up by FindConfig.
const ConfigFileName = ".quire.yaml"

// ErrConfigNotFound is returned by FindConfig when no file exists.
var ErrConfigNotFound = errors.New("config not found")

// FindConfig looks upwards from startDir for a .quire.yaml file and returns
// its absolute path.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if path := filepath.Join(dir, ConfigFileName); hasFile(path) {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", ErrConfigNotFound
}

func hasFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
