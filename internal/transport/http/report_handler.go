package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	apierrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/exporter"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/middleware"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/services"
)

const maxPageSize = 500

// ReportHandler serves student search, statistics and snapshot views
type ReportHandler struct {
	service      ReportServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	params       *middleware.QueryParamValidator
}

// NewReportHandler creates a new report handler with RFC 7807 error handling
func NewReportHandler(service ReportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
		params:       middleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/students/search", h.SearchStudent)

	r.Route("/stats", func(r chi.Router) {
		r.Get("/", h.GetOverview)
		r.Get("/kpis.csv", h.DownloadKPIs)
	})

	r.Route("/snapshot", func(r chi.Router) {
		r.Get("/", h.GetSnapshotInfo)
		r.Get("/records", h.GetRecords)
		r.Get("/export.csv", h.DownloadSnapshot)
	})

	return r
}

// SearchStudent handles GET /api/students/search?q=&course=
func (h *ReportHandler) SearchStudent(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	course := r.URL.Query().Get("course")

	st, err := h.service.SearchStudent(r.Context(), query, course)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("q", "Enter an email or a student ID"))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, st)
}

// GetOverview handles GET /api/stats
func (h *ReportHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.service.Overview(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, ov)
}

// GetSnapshotInfo handles GET /api/snapshot
func (h *ReportHandler) GetSnapshotInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.SnapshotInfo(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// GetRecords handles GET /api/snapshot/records?course=&offset=&limit=
func (h *ReportHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	offset, ok := h.params.ValidateInt(w, r, "offset", 0, 1<<30, 0)
	if !ok {
		return
	}
	limit, ok := h.params.ValidateInt(w, r, "limit", 1, maxPageSize, 100)
	if !ok {
		return
	}

	page, err := h.service.Records(r.Context(), r.URL.Query().Get("course"), offset, limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

// DownloadSnapshot handles GET /api/snapshot/export.csv
func (h *ReportHandler) DownloadSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeCSV(w, r, config.SnapshotExportName, exporter.WriteOptions{
		Headers:   exporter.SnapshotHeaders,
		Records:   exporter.SnapshotRecords(snap),
		BOMPrefix: true,
	})
}

// DownloadKPIs handles GET /api/stats/kpis.csv
func (h *ReportHandler) DownloadKPIs(w http.ResponseWriter, r *http.Request) {
	ov, err := h.service.Overview(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeCSV(w, r, config.CourseKPIExportName, exporter.WriteOptions{
		Headers:   exporter.KPIHeaders,
		Records:   exporter.KPIRecords(ov.Courses),
		BOMPrefix: true,
	})
}

func (h *ReportHandler) writeCSV(w http.ResponseWriter, r *http.Request, name string, opts exporter.WriteOptions) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := exporter.Write(w, opts); err != nil {
		// Headers are already sent; the client sees a truncated file.
		h.logger.ErrorContext(r.Context(), "Failed to stream CSV",
			slog.String("file", name),
			slog.String("error", err.Error()))
	}
}
