package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	apperrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/stats"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/status"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

var tracer = otel.Tracer("github.com/genai-ESCP/Backoffice-DataAnalytics/internal/services")

// SnapshotSource provides the current extraction snapshot.
type SnapshotSource interface {
	Get(ctx context.Context) (*domain.Snapshot, error)
}

// RegistrySource provides the student directory and the certification list.
type RegistrySource interface {
	Directory(ctx context.Context) (*domain.StudentDirectory, error)
	Certified(ctx context.Context) (domain.CertifiedEmailSet, error)
}

// SnapshotExporter writes CSV exports and returns the written paths.
type SnapshotExporter interface {
	ExportSnapshot(snap *domain.Snapshot) (string, error)
	ExportCourseKPIs(kpis []domain.CourseKPI) (string, error)
}

// Export kinds accepted by ReportService.Export.
const (
	ExportSnapshot = "snapshot"
	ExportKPIs     = "kpis"
)

// RecordPage is one page of snapshot records.
type RecordPage struct {
	Total   int                       `json:"total"`
	Offset  int                       `json:"offset"`
	Limit   int                       `json:"limit"`
	Records []domain.NormalizedRecord `json:"records"`
}

// ReportService answers read-only questions about the extraction archive.
type ReportService struct {
	snapshots SnapshotSource
	registry  RegistrySource
	exporter  SnapshotExporter
	engine    *status.Engine
	catalog   config.CourseCatalog
	logger    *slog.Logger
}

// NewReportService creates a report service. registry and exporter may be nil.
func NewReportService(snapshots SnapshotSource, registry RegistrySource, exporter SnapshotExporter, engine *status.Engine, catalog config.CourseCatalog, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		snapshots: snapshots,
		registry:  registry,
		exporter:  exporter,
		engine:    engine,
		catalog:   catalog,
		logger:    logger.With(slog.String("service", "report")),
	}
}

// Snapshot returns the current snapshot.
func (s *ReportService) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load extraction snapshot", slog.String("error", err.Error()))
		return nil, apperrors.NewStorageError("failed to load extraction snapshot", err)
	}
	return snap, nil
}

// SnapshotInfo returns the snapshot metadata.
func (s *ReportService) SnapshotInfo(ctx context.Context) (domain.SnapshotInfo, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.SnapshotInfo{}, err
	}
	return snap.Info(), nil
}

// Records returns a page of the snapshot, optionally restricted to one course.
func (s *ReportService) Records(ctx context.Context, course string, offset, limit int) (*RecordPage, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rows := snap.Records
	if course != "" {
		rows = snap.ForCourse(course)
	}

	page := &RecordPage{Total: len(rows), Offset: offset, Limit: limit, Records: []domain.NormalizedRecord{}}
	if offset < 0 || offset >= len(rows) {
		return page, nil
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page.Records = rows[offset:end]
	return page, nil
}

// SearchStudent resolves a student by email or ID. When course is set the
// timeline is restricted to that course.
func (s *ReportService) SearchStudent(ctx context.Context, query, course string) (*domain.StudentStatus, error) {
	ctx, span := tracer.Start(ctx, "ReportService.SearchStudent")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	in := status.Inputs{Snapshot: snap}
	in.Directory, in.Certified = s.registries(ctx)

	st, err := s.engine.Lookup(ctx, query, in)
	if errors.Is(err, status.ErrNotFound) {
		s.logger.InfoContext(ctx, "No record matches the query", slog.String("query", query))
		return nil, apperrors.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("student lookup failed: %w", err)
	}

	if course != "" {
		st.Timeline = status.FilterTimeline(st.Timeline, course)
	}
	span.SetAttributes(attribute.Bool("status.needs_review", st.NeedsReview))
	return st, nil
}

// Overview computes the statistics view of the current snapshot.
func (s *ReportService) Overview(ctx context.Context) (*domain.Overview, error) {
	ctx, span := tracer.Start(ctx, "ReportService.Overview")
	defer span.End()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	_, certified := s.registries(ctx)
	return stats.Overview(snap, s.catalog, certified), nil
}

// Export writes the requested CSV and returns its path.
func (s *ReportService) Export(ctx context.Context, kind string) (string, error) {
	if s.exporter == nil {
		return "", ErrServiceUnavailable
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	var path string
	switch kind {
	case ExportSnapshot:
		path, err = s.exporter.ExportSnapshot(snap)
	case ExportKPIs:
		_, certified := s.registries(ctx)
		path, err = s.exporter.ExportCourseKPIs(stats.Overview(snap, s.catalog, certified).Courses)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExport, kind)
	}
	if err != nil {
		return "", apperrors.NewStorageError("failed to write export", err).WithContext("kind", kind)
	}

	s.logger.InfoContext(ctx, "Export written", slog.String("kind", kind), slog.String("path", path))
	return path, nil
}

// registries loads the optional side tables. A missing or unreadable registry
// yields an empty value.
func (s *ReportService) registries(ctx context.Context) (*domain.StudentDirectory, domain.CertifiedEmailSet) {
	if s.registry == nil {
		return nil, nil
	}
	dir, err := s.registry.Directory(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Student directory unavailable", slog.String("error", err.Error()))
		dir = nil
	}
	certified, err := s.registry.Certified(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Certification list unavailable", slog.String("error", err.Error()))
		certified = nil
	}
	return dir, certified
}
