package services

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

// StructValidator validates tagged structs.
type StructValidator interface {
	ValidateStruct(v interface{}) error
}

// Merger runs the gradebook/hours merge.
type Merger interface {
	Process(ctx context.Context, req domain.MergeRequest) (*domain.MergeOutput, error)
}

// ExtractionRequest is an extraction-generation request as received from a
// form or the command line. Course selects the preset used for the default
// target sheet and output name.
type ExtractionRequest struct {
	Course        string `json:"course" validate:"omitempty,course"`
	GradebookName string `json:"gradebook_name" validate:"required,filename,workbook"`
	Gradebook     []byte `json:"-"`
	HoursName     string `json:"hours_name" validate:"required,filename,workbook"`
	Hours         []byte `json:"-"`
	TargetSheet   string `json:"target_sheet" validate:"omitempty,max=64"`
	OutputName    string `json:"output_name" validate:"omitempty,filename,workbook"`
}

// ExtractionResult is the generated workbook.
type ExtractionResult struct {
	*domain.MergeOutput
}

// ExtractionService generates extraction workbooks from uploads.
type ExtractionService struct {
	merger    Merger
	validator StructValidator
	logger    *slog.Logger
}

// NewExtractionService creates the service. validator may be nil.
func NewExtractionService(merger Merger, validator StructValidator, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{
		merger:    merger,
		validator: validator,
		logger:    logger.With(slog.String("service", "extraction")),
	}
}

// Generate validates req, fills the preset defaults and runs the merge. The
// workbook is returned in memory; nothing is written.
func (s *ExtractionService) Generate(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error) {
	ctx, span := tracer.Start(ctx, "ExtractionService.Generate")
	defer span.End()

	req = withDefaults(req)
	if len(req.Gradebook) == 0 || len(req.Hours) == 0 {
		return nil, ErrMissingUpload
	}
	if s.validator != nil {
		if err := s.validator.ValidateStruct(req); err != nil {
			return nil, err
		}
	}
	span.SetAttributes(
		attribute.String("extraction.course", req.Course),
		attribute.String("extraction.target_sheet", req.TargetSheet),
	)

	out, err := s.merger.Process(ctx, domain.MergeRequest{
		GradebookName: req.GradebookName,
		Gradebook:     req.Gradebook,
		HoursName:     req.HoursName,
		Hours:         req.Hours,
		TargetSheet:   req.TargetSheet,
		OutputName:    req.OutputName,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Extraction generated",
		slog.String("course", req.Course),
		slog.String("file", out.FileName),
		slog.Int("rows", out.RowCount))
	return &ExtractionResult{MergeOutput: out}, nil
}

func withDefaults(req ExtractionRequest) ExtractionRequest {
	req.Course = strings.TrimSpace(req.Course)
	if req.Course == "" {
		req.Course = config.DefaultExtractionCourse
	}
	req.TargetSheet = strings.TrimSpace(req.TargetSheet)
	if req.TargetSheet == "" {
		req.TargetSheet = config.TargetSheetFor(req.Course)
	}
	req.OutputName = strings.TrimSpace(req.OutputName)
	if req.OutputName == "" {
		req.OutputName = config.OutputNameFor(req.Course)
	}
	return req
}
