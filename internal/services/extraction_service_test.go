package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	apperrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/middleware"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

type fakeMerger struct {
	got domain.MergeRequest
	err error
}

func (f *fakeMerger) Process(ctx context.Context, req domain.MergeRequest) (*domain.MergeOutput, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.MergeOutput{FileName: req.OutputName, Content: []byte("xlsx"), RowCount: 3}, nil
}

func newExtractionService(m Merger) *ExtractionService {
	v := middleware.NewValidationMiddleware(quietLogger(), apperrors.NewErrorHandler(quietLogger(), false))
	return NewExtractionService(m, v, quietLogger())
}

func uploads() ExtractionRequest {
	return ExtractionRequest{
		GradebookName: "gc_export.xls",
		Gradebook:     []byte("gradebook"),
		HoursName:     "hours.xlsx",
		Hours:         []byte("hours"),
	}
}

func TestGenerateDefaults(t *testing.T) {
	m := &fakeMerger{}
	svc := newExtractionService(m)

	res, err := svc.Generate(context.Background(), uploads())
	require.NoError(t, err)

	assert.Equal(t, "gc_2526ALL_SPR_GENAI_00_fullgc_2", m.got.TargetSheet)
	assert.Equal(t, "Data_GenAI_2526ALL_SPR_GENAI_00.xlsx", m.got.OutputName)
	assert.Equal(t, "Data_GenAI_2526ALL_SPR_GENAI_00.xlsx", res.FileName)
	assert.Equal(t, 3, res.RowCount)
	assert.Equal(t, []byte("xlsx"), res.Content)
}

func TestGenerateCoursePreset(t *testing.T) {
	m := &fakeMerger{}
	svc := newExtractionService(m)

	req := uploads()
	req.Course = config.CourseFall2526Retake
	req.TargetSheet = "  "
	_, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "gc_2526ALL_OL_GENAI_02_fullgc_2", m.got.TargetSheet)
	assert.Equal(t, "Data_GenAI_2526ALL_OL_GENAI_02.xlsx", m.got.OutputName)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ExtractionRequest)
		want   error
	}{
		{name: "missing hours", mutate: func(r *ExtractionRequest) { r.Hours = nil }, want: ErrMissingUpload},
		{name: "csv gradebook", mutate: func(r *ExtractionRequest) { r.GradebookName = "grades.csv" }},
		{name: "output traversal", mutate: func(r *ExtractionRequest) { r.OutputName = "../out.xlsx" }},
		{name: "bad course", mutate: func(r *ExtractionRequest) { r.Course = "2526 ALL" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMerger{}
			req := uploads()
			tt.mutate(&req)

			_, err := newExtractionService(m).Generate(context.Background(), req)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				var apiErr *apperrors.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
			}
			assert.Empty(t, m.got.GradebookName, "merge must not run")
		})
	}
}

func TestGenerateMergeErrorPassesThrough(t *testing.T) {
	structural := apperrors.NewStructureError("hours export columns not recognized", nil)
	svc := newExtractionService(&fakeMerger{err: structural})

	_, err := svc.Generate(context.Background(), uploads())
	assert.ErrorIs(t, err, structural)
}
