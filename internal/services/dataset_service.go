package services

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"cvscan/internal/files"
	"cvscan/internal/infrastructure"
	ws "cvscan/internal/websocket"
	"cvscan/pkg/contracts/domain"
)

// DatasetStore persists one recording per scan rate.
type DatasetStore interface {
	Save(ctx context.Context, scanRate float64, filename string, r io.Reader) (domain.Dataset, error)
	Open(ctx context.Context, scanRate float64) (domain.Table, error)
	Get(scanRate float64) (domain.Dataset, error)
	Remove(scanRate float64) error
	Clear() error
}

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, eventType string, data interface{})
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(context.Context, string, interface{}) {}

// DatasetService manages the session's scan rates and their recordings.
type DatasetService struct {
	store   DatasetStore
	session *Session
	hub     Broadcaster
	metrics *infrastructure.ServiceMetrics
	logger  *slog.Logger
}

// NewDatasetService creates a dataset service. hub and metrics may be nil.
func NewDatasetService(store DatasetStore, session *Session, hub Broadcaster, metrics *infrastructure.ServiceMetrics, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = nopBroadcaster{}
	}
	if session == nil {
		session = NewSession()
	}
	return &DatasetService{
		store:   store,
		session: session,
		hub:     hub,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "dataset_service")),
	}
}

// SetScanRates declares the scan rates of the session from free text.
// Recordings already stored for a declared rate are attached right away.
func (s *DatasetService) SetScanRates(ctx context.Context, input string) (domain.SessionState, error) {
	rates, err := ParseScanRates(input)
	if err != nil {
		return domain.SessionState{}, err
	}

	dropped := s.session.SetScanRates(rates)
	for _, rate := range rates {
		if _, ok := s.session.Dataset(rate); ok {
			continue
		}
		ds, err := s.store.Get(rate)
		if err != nil {
			continue
		}
		_ = s.session.Attach(ds)
	}

	state := s.session.State()
	s.logger.InfoContext(ctx, "Scan rates declared",
		slog.Any("scan_rates", rates),
		slog.Int("detached", len(dropped)),
		slog.Bool("upload_complete", state.Complete))
	s.hub.Broadcast(ctx, ws.EventSessionUpdated, state)
	return state, nil
}

// State returns the current session snapshot.
func (s *DatasetService) State(ctx context.Context) domain.SessionState {
	return s.session.State()
}

// ScanRates returns the declared scan rates in declaration order.
func (s *DatasetService) ScanRates() []float64 {
	return s.session.ScanRates()
}

// Missing returns the declared rates without a recording.
func (s *DatasetService) Missing() []float64 {
	return s.session.Missing()
}

// Upload stores the recording of a declared scan rate, replacing any
// previous one.
func (s *DatasetService) Upload(ctx context.Context, rate float64, filename string, r io.Reader) (domain.Dataset, error) {
	if !s.session.Has(rate) {
		return domain.Dataset{}, rateError(ErrScanRateNotFound, rate)
	}

	ds, err := s.store.Save(ctx, rate, filename, r)
	if err != nil {
		s.logger.WarnContext(ctx, "Upload rejected",
			slog.Float64("scan_rate", rate),
			slog.String("file", filename),
			slog.String("error", err.Error()))
		return domain.Dataset{}, err
	}
	if err := s.session.Attach(ds); err != nil {
		// The rate was undeclared while the upload was in flight.
		return domain.Dataset{}, err
	}

	s.metrics.RecordDatasetStored(ctx, rate, ds.SizeBytes)
	complete := s.session.Complete()
	s.hub.Broadcast(ctx, ws.EventDatasetStored, map[string]interface{}{
		"scan_rate":       rate,
		"file":            ds.OriginalName,
		"rows":            ds.Rows,
		"upload_complete": complete,
	})
	return ds, nil
}

// Datasets returns the attached recordings in session order.
func (s *DatasetService) Datasets(ctx context.Context) []domain.Dataset {
	return s.session.State().Datasets
}

// Remove deletes the recording of rate.
func (s *DatasetService) Remove(ctx context.Context, rate float64) error {
	if _, ok := s.session.Dataset(rate); !ok {
		return rateError(ErrDatasetMissing, rate)
	}
	if err := s.store.Remove(rate); err != nil && !errors.Is(err, files.ErrDatasetNotFound) {
		return err
	}
	s.session.Detach(rate)

	s.logger.InfoContext(ctx, "Dataset removed", slog.Float64("scan_rate", rate))
	s.hub.Broadcast(ctx, ws.EventDatasetRemoved, map[string]interface{}{"scan_rate": rate})
	return nil
}

// Reset deletes every stored file and clears the session.
func (s *DatasetService) Reset(ctx context.Context) error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.session.Reset()

	s.logger.InfoContext(ctx, "Session reset")
	s.hub.Broadcast(ctx, ws.EventSessionReset, nil)
	return nil
}

// Table returns the parsed recording of a declared rate.
func (s *DatasetService) Table(ctx context.Context, rate float64) (domain.Table, error) {
	if !s.session.Has(rate) {
		return nil, rateError(ErrScanRateNotFound, rate)
	}
	if _, ok := s.session.Dataset(rate); !ok {
		return nil, rateError(ErrDatasetMissing, rate)
	}
	table, err := s.store.Open(ctx, rate)
	if errors.Is(err, files.ErrDatasetNotFound) {
		return nil, rateError(ErrDatasetMissing, rate)
	}
	return table, err
}
