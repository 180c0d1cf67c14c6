package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "cvscan/internal/errors"
	"cvscan/internal/middleware"
	api "cvscan/pkg/contracts/api/v1"
	"cvscan/pkg/contracts/domain"
)

// SessionHandler handles the scan rates of the session
type SessionHandler struct {
	service      DatasetServiceInterface
	validator    *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service DatasetServiceInterface, validator *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	return &SessionHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "session_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the session routes
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetSession)
	r.Delete("/", h.ResetSession)
	r.Put("/scan-rates", h.SetScanRates)

	return r
}

// GetSession handles GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, sessionResponse(h.service.State(r.Context())))
}

// SetScanRates handles PUT /api/session/scan-rates
func (h *SessionHandler) SetScanRates(w http.ResponseWriter, r *http.Request) {
	var req api.ScanRatesRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	state, err := h.service.SetScanRates(r.Context(), req.ScanRates)
	if err != nil {
		h.errorHandler.HandleError(w, r, translateError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "Scan rates declared",
		slog.Any("scan_rates", state.ScanRates),
		slog.Int("missing", len(state.Missing)))
	render.JSON(w, r, sessionResponse(state))
}

// ResetSession handles DELETE /api/session. It removes every upload,
// dataset and report.
func (h *SessionHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		h.errorHandler.HandleError(w, r, translateError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionResponse(state domain.SessionState) api.SessionResponse {
	resp := api.SessionResponse{
		ScanRates: state.ScanRates,
		Datasets:  state.Datasets,
		Missing:   state.Missing,
		Complete:  state.Complete,
	}
	if resp.ScanRates == nil {
		resp.ScanRates = []float64{}
	}
	if resp.Datasets == nil {
		resp.Datasets = []domain.Dataset{}
	}
	if resp.Missing == nil {
		resp.Missing = []float64{}
	}
	return resp
}
