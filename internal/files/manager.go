package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
)

// ErrSourceTree is returned for writes that would land inside the extraction
// root. Source exports are read-only to this service.
var ErrSourceTree = errors.New("refusing to write inside the extraction root")

// Manager provides file management operations rooted at the configured
// application directories.
type Manager struct {
	paths *config.Paths
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths) *Manager {
	return &Manager{paths: paths}
}

// WriteFile writes data through a temporary file in the same directory and
// renames it into place, so readers never observe a half-written file.
func (m *Manager) WriteFile(path string, data []byte) error {
	fullPath := m.resolvePath(path)
	if m.inExtractionRoot(fullPath) {
		return fmt.Errorf("%s: %w", fullPath, ErrSourceTree)
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(fullPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return fmt.Errorf("failed to publish %s: %w", path, err)
	}

	slog.Info("File written",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Int("size_bytes", len(data)))
	return nil
}

// SaveExtraction writes a generated extraction workbook to dir/name and
// returns the absolute path. name must be a plain .xlsx file name and dir
// must lie outside the extraction root.
func (m *Manager) SaveExtraction(dir, name string, data []byte) (string, error) {
	if err := plainElement(name); err != nil {
		return "", fmt.Errorf("invalid file name: %w", err)
	}
	if !IsWorkbook(name) {
		return "", fmt.Errorf("invalid file name %q: not an .xlsx workbook", name)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	dest := filepath.Join(absDir, name)
	if err := m.WriteFile(dest, data); err != nil {
		return "", err
	}
	return dest, nil
}

// inExtractionRoot reports whether path is the extraction root or below it.
func (m *Manager) inExtractionRoot(path string) bool {
	root, err := filepath.Abs(m.paths.ExtractionsDir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func plainElement(s string) error {
	switch {
	case strings.TrimSpace(s) == "":
		return fmt.Errorf("empty")
	case s == "." || s == "..":
		return fmt.Errorf("%q is not allowed", s)
	case strings.ContainsAny(s, `/\`):
		return fmt.Errorf("%q contains a path separator", s)
	}
	return nil
}

// resolvePath resolves a path relative to the appropriate base directory
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	path = filepath.ToSlash(path)
	switch {
	case strings.HasPrefix(path, "reports/"):
		return m.paths.GetReportPath(strings.TrimPrefix(path, "reports/"))
	case strings.HasPrefix(path, "logs/"):
		return m.paths.GetLogPath(strings.TrimPrefix(path, "logs/"))
	default:
		return filepath.Join(m.paths.DataDir, filepath.FromSlash(path))
	}
}
