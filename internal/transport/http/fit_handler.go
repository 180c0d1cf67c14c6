package http

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"cvscan/internal/curvefit"
	apierrors "cvscan/internal/errors"
	"cvscan/internal/middleware"
	"cvscan/internal/services"
	api "cvscan/pkg/contracts/api/v1"
	"cvscan/pkg/contracts/domain"
)

// FitHandler serves polynomial fits and report exports
type FitHandler struct {
	service      AnalysisServiceInterface
	validator    *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewFitHandler creates a new fit handler
func NewFitHandler(service AnalysisServiceInterface, validator *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *FitHandler {
	return &FitHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "fit_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the fit routes, mounted at /api/fits
func (h *FitHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(RateCtx(h.errorHandler)).Get("/{rate}", h.GetFit)

	return r
}

// ReportRoutes returns the report routes, mounted at /api/reports
func (h *FitHandler) ReportRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(RateCtx(h.errorHandler)).Post("/{rate}", h.ExportReport)

	return r
}

// GetFit handles GET /api/fits/{rate}?half=&degree=&samples=
func (h *FitHandler) GetFit(w http.ResponseWriter, r *http.Request) {
	rate := rateFromContext(r.Context())

	q := api.FitQuery{Half: r.URL.Query().Get("half")}
	if raw := r.URL.Query().Get("degree"); raw != "" {
		degree, err := strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("degree", "degree must be an integer"))
			return
		}
		q.Degree = &degree
	}
	if raw := r.URL.Query().Get("samples"); raw != "" {
		samples, err := strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("samples", "samples must be an integer"))
			return
		}
		q.Samples = samples
	}
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	fits, err := h.service.Fit(r.Context(), rate, degreeOrDefault(q.Degree))
	if err != nil {
		h.errorHandler.HandleError(w, r, translateRateError(err, rate))
		return
	}

	resp := api.FitResponse{ScanRate: rate, Degree: fits.Anode.Degree}
	if q.Half == "" || q.Half == string(domain.HalfAnode) {
		resp.Anode = &fits.Anode
		resp.AnodeOverlay = overlay(rate, domain.ViewAnode, fits.Anode, q.Samples)
	}
	if q.Half == "" || q.Half == string(domain.HalfCathode) {
		resp.Cathode = &fits.Cathode
		resp.CathodeOverlay = overlay(rate, domain.ViewCathode, fits.Cathode, q.Samples)
	}
	render.JSON(w, r, resp)
}

// overlay returns nil when no samples were requested.
func overlay(rate float64, view domain.CurveView, fit domain.FitResult, samples int) *domain.CurveSeries {
	x, y := curvefit.Overlay(fit, samples)
	if x == nil {
		return nil
	}
	return &domain.CurveSeries{
		ScanRate: rate,
		View:     view,
		Label:    fmt.Sprintf("%s fit (degree %d)", view, fit.Degree),
		X:        x,
		Y:        y,
	}
}

// ExportReport handles POST /api/reports/{rate}. The body is optional;
// without one a CSV report with the default degree is written.
func (h *FitHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	rate := rateFromContext(r.Context())

	var req api.ReportRequest
	if err := h.decodeOptional(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, err := h.service.Report(r.Context(), rate, req.Format, degreeOrDefault(req.Degree))
	if err != nil {
		h.errorHandler.HandleError(w, r, translateRateError(err, rate))
		return
	}

	h.logger.InfoContext(r.Context(), "Report exported",
		slog.Float64("scan_rate", rate),
		slog.String("format", report.Format),
		slog.Int("files", len(report.Files)))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.ReportResponse{
		ScanRate:    report.ScanRate,
		Format:      report.Format,
		Files:       report.Files,
		GeneratedAt: report.GeneratedAt,
	})
}

// decodeOptional decodes a JSON body into v when one was sent.
func (h *FitHandler) decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return h.validator.ValidateStruct(v)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apierrors.InvalidRequestWithError(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return h.validator.ValidateStruct(v)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return h.validator.DecodeJSON(r, v)
}

func degreeOrDefault(degree *int) int {
	if degree == nil {
		return services.DefaultDegree
	}
	return *degree
}
