package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/services"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

type mockReportService struct {
	mock.Mock
}

func (m *mockReportService) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*domain.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReportService) SnapshotInfo(ctx context.Context) (domain.SnapshotInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.SnapshotInfo), args.Error(1)
}

func (m *mockReportService) Records(ctx context.Context, course string, offset, limit int) (*services.RecordPage, error) {
	args := m.Called(ctx, course, offset, limit)
	if p := args.Get(0); p != nil {
		return p.(*services.RecordPage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReportService) SearchStudent(ctx context.Context, query, course string) (*domain.StudentStatus, error) {
	args := m.Called(ctx, query, course)
	if s := args.Get(0); s != nil {
		return s.(*domain.StudentStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReportService) Overview(ctx context.Context) (*domain.Overview, error) {
	args := m.Called(ctx)
	if o := args.Get(0); o != nil {
		return o.(*domain.Overview), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockExtractionService struct {
	mock.Mock
}

func (m *mockExtractionService) Generate(ctx context.Context, req services.ExtractionRequest) (*services.ExtractionResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*services.ExtractionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockHealthService struct {
	mock.Mock
}

func (m *mockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *mockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *mockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *mockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testErrorHandler() *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(testLogger(), false)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
