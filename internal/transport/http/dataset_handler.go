package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "cvscan/internal/errors"
	"cvscan/internal/middleware"
	api "cvscan/pkg/contracts/api/v1"
	"cvscan/pkg/contracts/domain"
)

// UploadField is the multipart field carrying a recording.
const UploadField = "file"

// multipartMemory is the part of an upload kept in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// DatasetHandler handles recording uploads
type DatasetHandler struct {
	service        DatasetServiceInterface
	validator      *middleware.ValidationMiddleware
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler. Uploads larger than
// maxUploadBytes are rejected with 413.
func NewDatasetHandler(service DatasetServiceInterface, validator *middleware.ValidationMiddleware, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		validator:      validator,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "dataset_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListDatasets)
	r.Route("/{rate}", func(r chi.Router) {
		r.Use(RateCtx(h.errorHandler))
		r.Post("/", h.UploadDataset)
		r.Delete("/", h.RemoveDataset)
	})

	return r
}

// ListDatasets handles GET /api/datasets
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets := h.service.Datasets(r.Context())
	if datasets == nil {
		datasets = []domain.Dataset{}
	}
	render.JSON(w, r, datasets)
}

// UploadDataset handles POST /api/datasets/{rate}
func (h *DatasetHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	rate := rateFromContext(r.Context())

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(UploadField, "A recording file is required"))
		return
	}
	defer file.Close()

	req := api.UploadRequest{Filename: header.Filename}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dataset, err := h.service.Upload(r.Context(), rate, req.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, translateRateError(err, rate))
		return
	}

	h.logger.InfoContext(r.Context(), "Recording uploaded",
		slog.Float64("scan_rate", rate),
		slog.String("file", req.Filename),
		slog.Int("rows", dataset.Rows))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, dataset)
}

// RemoveDataset handles DELETE /api/datasets/{rate}
func (h *DatasetHandler) RemoveDataset(w http.ResponseWriter, r *http.Request) {
	rate := rateFromContext(r.Context())
	if err := h.service.Remove(r.Context(), rate); err != nil {
		h.errorHandler.HandleError(w, r, translateRateError(err, rate))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
