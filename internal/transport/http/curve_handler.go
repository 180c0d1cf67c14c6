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

// CurveHandler serves the second-cycle curves for plotting
type CurveHandler struct {
	service      AnalysisServiceInterface
	validator    *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewCurveHandler creates a new curve handler
func NewCurveHandler(service AnalysisServiceInterface, validator *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *CurveHandler {
	return &CurveHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "curve_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the curve routes
func (h *CurveHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetCurves)
	r.Route("/{rate}", func(r chi.Router) {
		r.Use(RateCtx(h.errorHandler))
		r.Get("/", h.GetCurve)
		r.Get("/summary", h.GetSummary)
	})

	return r
}

// GetCurves handles GET /api/curves?view=
func (h *CurveHandler) GetCurves(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	series, err := h.service.Curves(r.Context(), view)
	if err != nil {
		h.errorHandler.HandleError(w, r, translateError(err))
		return
	}
	render.JSON(w, r, api.CurvesResponse{View: view, Series: series})
}

// GetCurve handles GET /api/curves/{rate}?view=
func (h *CurveHandler) GetCurve(w http.ResponseWriter, r *http.Request) {
	rate := rateFromContext(r.Context())
	view, err := h.view(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	series, err := h.service.Curve(r.Context(), rate, view)
	if err != nil {
		h.errorHandler.HandleError(w, r, translateRateError(err, rate))
		return
	}
	render.JSON(w, r, series)
}

// GetSummary handles GET /api/curves/{rate}/summary
func (h *CurveHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	rate := rateFromContext(r.Context())
	summary, err := h.service.Summary(r.Context(), rate)
	if err != nil {
		h.errorHandler.HandleError(w, r, translateRateError(err, rate))
		return
	}
	render.JSON(w, r, summary)
}

// view reads and validates the view query parameter. Empty means full.
func (h *CurveHandler) view(r *http.Request) (domain.CurveView, error) {
	q := api.CurveQuery{View: r.URL.Query().Get("view")}
	if err := h.validator.ValidateStruct(q); err != nil {
		return "", err
	}
	if q.View == "" {
		return domain.ViewFull, nil
	}
	return domain.CurveView(q.View), nil
}
