package http

import (
	"context"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/services"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

// ReportServiceInterface defines the read-only archive operations
type ReportServiceInterface interface {
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
	SnapshotInfo(ctx context.Context) (domain.SnapshotInfo, error)
	Records(ctx context.Context, course string, offset, limit int) (*services.RecordPage, error)
	SearchStudent(ctx context.Context, query, course string) (*domain.StudentStatus, error)
	Overview(ctx context.Context) (*domain.Overview, error)
}

// ExtractionServiceInterface defines the extraction-generation workflow
type ExtractionServiceInterface interface {
	Generate(ctx context.Context, req services.ExtractionRequest) (*services.ExtractionResult, error)
}

// HealthServiceInterface defines the health checks
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
