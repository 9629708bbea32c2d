package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// IsDevRun checks if the current process is running via `go run` or `go test`.
// It relies on the fact that these commands build binaries in temporary directories.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}

	tempDir := os.TempDir()
	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(tempDir)) {
		return true
	}

	return strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe")
}

// ResolveCredentialPath returns where the credential file really lives.
// When sandboxed, paths outside the system temp directory are re-rooted
// under <tmp>/quire-dev, keeping the file name.
func ResolveCredentialPath(path string, sandbox bool) string {
	if !sandbox {
		return path
	}

	clean := filepath.Clean(path)
	rel, err := filepath.Rel(os.TempDir(), clean)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return clean
	}

	name := filepath.Base(clean)
	if name == "." || name == string(os.PathSeparator) {
		name = "credential"
	}
	return filepath.Join(os.TempDir(), "quire-dev", name)
}
