package http

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/services"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

type upload struct {
	field, name string
	content     []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serveExtraction(svc *mockExtractionService, req *http.Request) *httptest.ResponseRecorder {
	h := NewExtractionHandler(svc, testLogger(), testErrorHandler())
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestExtractionHandler_Generate(t *testing.T) {
	svc := new(mockExtractionService)
	svc.On("Generate", mock.Anything, mock.MatchedBy(func(req services.ExtractionRequest) bool {
		return req.Course == "2526ALL_SPR_GENAI_00" &&
			req.GradebookName == "gradebook.xlsx" &&
			string(req.Gradebook) == "gb" &&
			req.HoursName == "hours.xlsx" &&
			string(req.Hours) == "hrs" &&
			req.OutputName == "custom.xlsx"
	})).Return(&services.ExtractionResult{
		MergeOutput: &domain.MergeOutput{FileName: "custom.xlsx", Content: []byte("PK-workbook"), RowCount: 42},
	}, nil)

	req := multipartRequest(t,
		map[string]string{
			FieldCourse:     "2526ALL_SPR_GENAI_00",
			FieldOutputName: "custom.xlsx",
		},
		upload{FieldGradebook, "gradebook.xlsx", []byte("gb")},
		upload{FieldHours, "hours.xlsx", []byte("hrs")},
	)
	rec := serveExtraction(svc, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="custom.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "42", rec.Header().Get("X-Row-Count"))
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))
	assert.Equal(t, "PK-workbook", rec.Body.String())
	svc.AssertExpectations(t)
}

func TestExtractionHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		setup      func(*mockExtractionService)
		wantStatus int
		wantType   string
	}{
		{
			name: "missing uploads",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, nil)
			},
			setup: func(s *mockExtractionService) {
				s.On("Generate", mock.Anything, mock.MatchedBy(func(req services.ExtractionRequest) bool {
					return req.Gradebook == nil && req.Hours == nil
				})).Return(nil, services.ErrMissingUpload)
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{}"))
			},
			setup:      func(*mockExtractionService) {},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name: "body over limit",
			req: func(t *testing.T) *http.Request {
				req := multipartRequest(t, nil, upload{FieldGradebook, "g.xlsx", bytes.Repeat([]byte("x"), 4096)})
				req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, 512)
				return req
			},
			setup:      func(*mockExtractionService) {},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   apierrors.TypePayloadTooLarge,
		},
		{
			name: "unrecognized workbook",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, nil,
					upload{FieldGradebook, "g.xlsx", []byte("gb")},
					upload{FieldHours, "h.xlsx", []byte("hrs")},
				)
			},
			setup: func(s *mockExtractionService) {
				s.On("Generate", mock.Anything, mock.Anything).
					Return(nil, apierrors.NewStructureError("hours workbook", assert.AnError))
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeStructure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockExtractionService)
			tt.setup(svc)

			rec := serveExtraction(svc, tt.req(t))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantType, decodeJSON(t, rec)["type"])
			svc.AssertExpectations(t)
		})
	}
}
