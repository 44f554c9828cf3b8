package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/services"
)

// XLSXContentType is the media type of generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Multipart form fields of POST /api/extractions.
const (
	FieldGradebook   = "gradebook"
	FieldHours       = "hours"
	FieldCourse      = "course"
	FieldTargetSheet = "target_sheet"
	FieldOutputName  = "output_name"
)

const multipartMemory = 8 << 20

// ExtractionHandler runs the gradebook/hours merge for uploaded files
type ExtractionHandler struct {
	service      ExtractionServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExtractionHandler creates a new extraction handler
func NewExtractionHandler(service ExtractionServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExtractionHandler {
	return &ExtractionHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "extraction_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the extraction routes
func (h *ExtractionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Generate)
	return r
}

// Generate handles POST /api/extractions and answers with the merged workbook
func (h *ExtractionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req := services.ExtractionRequest{
		Course:      r.FormValue(FieldCourse),
		TargetSheet: r.FormValue(FieldTargetSheet),
		OutputName:  r.FormValue(FieldOutputName),
	}
	var err error
	if req.GradebookName, req.Gradebook, err = readUpload(r, FieldGradebook); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if req.HoursName, req.Hours, err = readUpload(r, FieldHours); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrMissingUpload) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("files", "Upload both files before processing"))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Content)))
	w.Header().Set("X-Row-Count", strconv.Itoa(res.RowCount))
	if _, err := w.Write(res.Content); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to send workbook", slog.String("error", err.Error()))
	}
}

// readUpload returns the name and content of a form file. A missing field
// yields empty values so the service reports both missing uploads at once.
func readUpload(r *http.Request, field string) (string, []byte, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, apierrors.InvalidRequestWithError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, apierrors.FileSystemError("upload read", err)
	}
	return header.Filename, data, nil
}
