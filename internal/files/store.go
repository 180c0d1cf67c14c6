package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cvscan/internal/config"
	"cvscan/internal/dataprocessing"
	apperrors "cvscan/internal/errors"
	"cvscan/pkg/contracts/domain"
)

// ErrDatasetNotFound is returned when no recording is stored for a scan rate.
var ErrDatasetNotFound = errors.New("files: dataset not found")

// Store keeps one recording per scan rate. Uploads are kept verbatim under
// uploads/ and converted to the canonical two-column CSV under datasets/.
// Parsed tables are cached by content digest, so uploading identical bytes
// again skips the conversion.
type Store struct {
	paths   *config.Paths
	manager *Manager
	logger  *slog.Logger

	mu       sync.RWMutex
	datasets map[float64]domain.Dataset
	tables   map[string]domain.Table // digest -> parsed table
}

// NewStore creates a dataset store rooted in paths.
func NewStore(paths *config.Paths, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "dataset_store"))
	return &Store{
		paths:    paths,
		manager:  NewManager(paths, logger),
		logger:   logger,
		datasets: make(map[float64]domain.Dataset),
		tables:   make(map[string]domain.Table),
	}
}

// Save stores the recording read from r as the dataset of scanRate,
// replacing any previous one. filename is the client-side name and selects
// the parser by extension.
func (s *Store) Save(ctx context.Context, scanRate float64, filename string, r io.Reader) (domain.Dataset, error) {
	if scanRate <= 0 || math.IsInf(scanRate, 0) || math.IsNaN(scanRate) {
		return domain.Dataset{}, apperrors.NewAppError(apperrors.ErrTypeValidation,
			fmt.Sprintf("invalid scan rate %v", scanRate), nil)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".csv" {
		return domain.Dataset{}, apperrors.NewAppError(apperrors.ErrTypeValidation,
			fmt.Sprintf("unsupported file type %q, expected .xlsx or .csv", ext),
			dataprocessing.ErrUnsupportedFormat).WithContext("file", filename)
	}
	if err := ctx.Err(); err != nil {
		return domain.Dataset{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Land the upload under a private name first so a rejected file never
	// replaces the previous upload of this rate.
	upload, err := s.manager.WriteStream("uploads/.incoming-"+uuid.NewString()+ext, r)
	if err != nil {
		return domain.Dataset{}, apperrors.NewStorageError("failed to store upload", err).
			WithContext("scan_rate", scanRate)
	}

	previous, hadPrevious := s.datasets[scanRate]

	table, cached := s.tables[upload.Digest]
	if !cached {
		table, err = dataprocessing.ParseFile(upload.Path)
		if err != nil {
			_ = s.manager.DeleteFile(upload.Path)
			if errors.Is(err, dataprocessing.ErrSchemaMismatch) {
				return domain.Dataset{}, fmt.Errorf("%s: %w", filename, err)
			}
			return domain.Dataset{}, apperrors.NewParsingError("failed to read recording", err).
				WithContext("file", filename)
		}
	}

	var buf bytes.Buffer
	if err := dataprocessing.WriteCSV(&buf, table); err != nil {
		_ = s.manager.DeleteFile(upload.Path)
		return domain.Dataset{}, apperrors.NewStorageError("failed to convert recording", err)
	}
	// The canonical CSV is staged too and moved over the dataset of this
	// rate only after the upload is in place.
	staged, err := s.manager.WriteStream("datasets/.incoming-"+uuid.NewString()+config.DatasetExt, &buf)
	if err != nil {
		_ = s.manager.DeleteFile(upload.Path)
		return domain.Dataset{}, apperrors.NewStorageError("failed to store dataset", err).
			WithContext("scan_rate", scanRate)
	}

	uploadPath := s.paths.GetUploadPath(config.DatasetPrefix + config.FormatScanRate(scanRate) + ext)
	if err := s.manager.Rename(upload.Path, uploadPath); err != nil {
		_ = s.manager.DeleteFile(upload.Path)
		_ = s.manager.DeleteFile(staged.Path)
		return domain.Dataset{}, apperrors.NewStorageError("failed to store upload", err).
			WithContext("scan_rate", scanRate)
	}

	storedPath := s.paths.GetDatasetPath(scanRate)
	if err := s.manager.Rename(staged.Path, storedPath); err != nil {
		_ = s.manager.DeleteFile(staged.Path)
		return domain.Dataset{}, apperrors.NewStorageError("failed to store dataset", err).
			WithContext("scan_rate", scanRate)
	}

	if hadPrevious && previous.UploadPath != "" && previous.UploadPath != uploadPath {
		_ = s.manager.DeleteFile(previous.UploadPath)
	}

	dataset := domain.Dataset{
		ID:           uuid.NewString(),
		ScanRate:     scanRate,
		OriginalName: filename,
		UploadPath:   uploadPath,
		StoredPath:   storedPath,
		Digest:       upload.Digest,
		Rows:         table.Len(),
		SizeBytes:    upload.Size,
		StoredAt:     time.Now().UTC(),
	}
	s.datasets[scanRate] = dataset
	s.tables[upload.Digest] = table
	if hadPrevious {
		s.forgetDigest(previous.Digest)
	}

	s.logger.InfoContext(ctx, "Dataset stored",
		slog.Float64("scan_rate", scanRate),
		slog.String("file", filename),
		slog.Int("rows", dataset.Rows),
		slog.Int64("size_bytes", dataset.SizeBytes),
		slog.Bool("conversion_reused", cached))

	return dataset, nil
}

// Open returns the parsed table of scanRate. The caller owns the result.
func (s *Store) Open(ctx context.Context, scanRate float64) (domain.Table, error) {
	s.mu.RLock()
	dataset, ok := s.datasets[scanRate]
	table, cached := s.tables[dataset.Digest]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: scan rate %s", ErrDatasetNotFound, config.FormatScanRate(scanRate))
	}
	if cached {
		return table.Clone(), nil
	}

	table, err := dataprocessing.ParseFile(dataset.StoredPath)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read stored dataset", err).
			WithContext("scan_rate", scanRate)
	}

	s.mu.Lock()
	if current, ok := s.datasets[scanRate]; ok && current.Digest == dataset.Digest {
		s.tables[dataset.Digest] = table
	}
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Dataset loaded from disk", slog.Float64("scan_rate", scanRate))
	return table.Clone(), nil
}

// Get returns the metadata of the dataset stored for scanRate.
func (s *Store) Get(scanRate float64) (domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dataset, ok := s.datasets[scanRate]
	if !ok {
		return domain.Dataset{}, fmt.Errorf("%w: scan rate %s", ErrDatasetNotFound, config.FormatScanRate(scanRate))
	}
	return dataset, nil
}

// List returns all stored datasets ordered by scan rate.
func (s *Store) List() []domain.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Dataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScanRate < out[j].ScanRate })
	return out
}

// Remove deletes the dataset of scanRate and its files.
func (s *Store) Remove(scanRate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataset, ok := s.datasets[scanRate]
	if !ok {
		return fmt.Errorf("%w: scan rate %s", ErrDatasetNotFound, config.FormatScanRate(scanRate))
	}
	for _, path := range []string{dataset.UploadPath, dataset.StoredPath} {
		if path == "" {
			continue
		}
		if err := s.manager.DeleteFile(path); err != nil {
			return apperrors.NewStorageError("failed to remove dataset", err).WithContext("path", path)
		}
	}
	delete(s.datasets, scanRate)
	s.forgetDigest(dataset.Digest)
	return nil
}

// Clear removes every upload, dataset and report.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, dir := range []string{"uploads", "datasets", "reports"} {
		if err := s.manager.EmptyDirectory(dir); err != nil {
			return apperrors.NewStorageError("failed to clear data", err).WithContext("dir", dir)
		}
	}
	s.datasets = make(map[float64]domain.Dataset)
	s.tables = make(map[string]domain.Table)

	s.logger.Info("All data cleared")
	return nil
}

// Load registers the canonical CSVs already present in the datasets
// directory, typically left over from a previous run. It returns the
// number of datasets recovered.
func (s *Store) Load(ctx context.Context) (int, error) {
	names, err := s.manager.ListFiles("datasets")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, apperrors.NewStorageError("failed to list datasets", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := 0
	for _, name := range names {
		rate, ok := scanRateFromName(name)
		if !ok {
			continue
		}
		if _, exists := s.datasets[rate]; exists {
			continue
		}

		path := s.paths.GetDatasetPath(rate)
		table, err := dataprocessing.ParseFile(path)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable dataset",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}
		digest, err := s.manager.Digest(path)
		if err != nil {
			return loaded, apperrors.NewStorageError("failed to fingerprint dataset", err)
		}

		s.datasets[rate] = domain.Dataset{
			ID:           uuid.NewString(),
			ScanRate:     rate,
			OriginalName: name,
			StoredPath:   path,
			Digest:       digest,
			Rows:         table.Len(),
			StoredAt:     time.Now().UTC(),
		}
		s.tables[digest] = table
		loaded++
	}

	if loaded > 0 {
		s.logger.InfoContext(ctx, "Datasets recovered from disk", slog.Int("count", loaded))
	}
	return loaded, nil
}

// forgetDigest drops the cached table of digest unless another dataset
// still refers to it. Callers hold s.mu.
func (s *Store) forgetDigest(digest string) {
	for _, d := range s.datasets {
		if d.Digest == digest {
			return
		}
	}
	delete(s.tables, digest)
}

// scanRateFromName parses "scan_<rate>.csv".
func scanRateFromName(name string) (float64, bool) {
	if !strings.HasPrefix(name, config.DatasetPrefix) || !strings.HasSuffix(name, config.DatasetExt) {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, config.DatasetPrefix), config.DatasetExt)
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return 0, false
	}
	return rate, true
}
