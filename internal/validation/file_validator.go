package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Recording extensions accepted by the parser.
var recordingExtensions = map[string]bool{
	".xlsx": true,
	".csv":  true,
}

var (
	ErrNotRecording = errors.New("not a recording file")
	ErrTempFile     = errors.New("temporary office file")
)

// FileValidator checks command line inputs before any parsing starts.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateOutputDirectory ensures dir exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks that path is a readable regular file.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateRecording checks that path is a readable .xlsx or .csv file that
// is not an office lock file ("~$name.xlsx").
func (v *FileValidator) ValidateRecording(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !recordingExtensions[ext] {
		v.logger.Error("File is not a recording",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("%w: %s (extension %q)", ErrNotRecording, path, ext)
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("%w: %s", ErrTempFile, path)
	}
	return nil
}

// ValidateRecordings validates every path and joins the failures.
func (v *FileValidator) ValidateRecordings(paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := v.ValidateRecording(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
