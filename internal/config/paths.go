package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	BaseDir     string
	DataDir     string
	UploadsDir  string // original uploads, kept verbatim
	DatasetsDir string // canonical two-column CSV per scan rate
	ReportsDir  string
	LogsDir     string
}

// NewPaths lays out the directory tree under baseDir. Absolute dataDir or
// logsDir values are used as given.
func NewPaths(baseDir, dataDir, logsDir string) *Paths {
	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(baseDir, dir)
	}

	data := resolve(dataDir)
	return &Paths{
		BaseDir:     baseDir,
		DataDir:     data,
		UploadsDir:  filepath.Join(data, "uploads"),
		DatasetsDir: filepath.Join(data, "datasets"),
		ReportsDir:  filepath.Join(data, "reports"),
		LogsDir:     resolve(logsDir),
	}
}

// ResolvePaths builds the directory tree described by the Paths section.
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		dir, err := executableDir()
		if err != nil {
			return nil, err
		}
		base = dir
	}
	return NewPaths(base, c.Paths.DataDir, c.Paths.LogsDir), nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.UploadsDir,
		p.DatasetsDir,
		p.ReportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// FormatScanRate renders a scan rate the way it appears in file names:
// the shortest decimal that round-trips, so 5 becomes "5" and 2.5 "2.5".
func FormatScanRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

// GetDatasetPath returns the canonical CSV path for a scan rate
func (p *Paths) GetDatasetPath(rate float64) string {
	return filepath.Join(p.DatasetsDir, DatasetPrefix+FormatScanRate(rate)+DatasetExt)
}

// GetUploadPath returns the path for an uploaded file
func (p *Paths) GetUploadPath(filename string) string {
	return filepath.Join(p.UploadsDir, filename)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs the resolved directories
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("uploads", p.UploadsDir),
			slog.String("datasets", p.DatasetsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		))
}
