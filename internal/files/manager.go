package files

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"cvscan/internal/config"
)

// Manager provides file operations rooted in the data directory tree.
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{paths: paths, logger: logger}
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(m.resolvePath(path))
	return err == nil
}

// WrittenFile describes the result of WriteStream.
type WrittenFile struct {
	Path   string
	Size   int64
	Digest string // hex blake2b-256 of the content
}

// WriteStream copies r to path through a temporary file in the same
// directory and renames it into place, so readers never observe a partial
// file. The content digest is computed on the way through.
func (m *Manager) WriteStream(path string, r io.Reader) (WrittenFile, error) {
	fullPath := m.resolvePath(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return WrittenFile{}, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return WrittenFile{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hash, err := blake2b.New256(nil)
	if err != nil {
		tmp.Close()
		return WrittenFile{}, err
	}

	size, err := io.Copy(io.MultiWriter(tmp, hash), r)
	if err != nil {
		tmp.Close()
		return WrittenFile{}, fmt.Errorf("failed to write %s: %w", filepath.Base(fullPath), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return WrittenFile{}, err
	}
	if err := tmp.Close(); err != nil {
		return WrittenFile{}, err
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return WrittenFile{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	m.logger.Debug("File written",
		slog.String("path", fullPath),
		slog.Int64("size_bytes", size))

	return WrittenFile{
		Path:   fullPath,
		Size:   size,
		Digest: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// Digest returns the hex blake2b-256 digest of a file.
func (m *Manager) Digest(path string) (string, error) {
	f, err := os.Open(m.resolvePath(path))
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Rename moves src to dst, replacing dst.
func (m *Manager) Rename(src, dst string) error {
	dstPath := m.resolvePath(dst)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	return os.Rename(m.resolvePath(src), dstPath)
}

// DeleteFile deletes a file. A missing file is not an error.
func (m *Manager) DeleteFile(path string) error {
	fullPath := m.resolvePath(path)
	m.logger.Info("Deleting file", slog.String("path", fullPath))

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// EmptyDirectory removes every entry of dir but keeps dir itself.
func (m *Manager) EmptyDirectory(dir string) error {
	fullPath := m.resolvePath(dir)
	entries, err := os.ReadDir(fullPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	m.logger.Info("Emptying directory",
		slog.String("path", fullPath),
		slog.Int("entries", len(entries)))

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(fullPath, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// ListFiles returns all files in a directory (non-recursive)
func (m *Manager) ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(m.resolvePath(dir))
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// resolvePath maps "uploads/", "datasets/" and "reports/" prefixes onto the
// configured directories. Other relative paths live under the data dir.
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	path = filepath.ToSlash(path)
	switch {
	case path == "uploads" || strings.HasPrefix(path, "uploads/"):
		return filepath.Join(m.paths.UploadsDir, strings.TrimPrefix(strings.TrimPrefix(path, "uploads"), "/"))
	case path == "datasets" || strings.HasPrefix(path, "datasets/"):
		return filepath.Join(m.paths.DatasetsDir, strings.TrimPrefix(strings.TrimPrefix(path, "datasets"), "/"))
	case path == "reports" || strings.HasPrefix(path, "reports/"):
		return filepath.Join(m.paths.ReportsDir, strings.TrimPrefix(strings.TrimPrefix(path, "reports"), "/"))
	default:
		return filepath.Join(m.paths.DataDir, filepath.FromSlash(path))
	}
}
