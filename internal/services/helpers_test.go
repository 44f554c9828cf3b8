package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

var catalog = config.DefaultCourseCatalog()

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(m time.Month, d int) *time.Time {
	t := time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fakeSnapshots struct {
	snap  *domain.Snapshot
	err   error
	calls int
}

func (f *fakeSnapshots) Get(ctx context.Context) (*domain.Snapshot, error) {
	f.calls++
	return f.snap, f.err
}

type fakeRegistry struct {
	dir       *domain.StudentDirectory
	certified domain.CertifiedEmailSet
	err       error
}

func (f *fakeRegistry) Directory(ctx context.Context) (*domain.StudentDirectory, error) {
	return f.dir, f.err
}

func (f *fakeRegistry) Certified(ctx context.Context) (domain.CertifiedEmailSet, error) {
	return f.certified, f.err
}

type fakeExporter struct {
	snapshots int
	kpis      []domain.CourseKPI
	err       error
}

func (f *fakeExporter) ExportSnapshot(snap *domain.Snapshot) (string, error) {
	f.snapshots++
	return "/reports/snapshot.csv", f.err
}

func (f *fakeExporter) ExportCourseKPIs(kpis []domain.CourseKPI) (string, error) {
	f.kpis = kpis
	return "/reports/course_kpis.csv", f.err
}

func record(course string, at *time.Time, email, id, verdict string) domain.NormalizedRecord {
	file := "gc_" + course + ".xlsx"
	if at != nil {
		file = "gc_" + course + "_" + at.Format("02_Jan") + ".xlsx"
	}
	return domain.NormalizedRecord{
		CourseType:  course,
		FileName:    file,
		ExtractedAt: at,
		EmailNorm:   email,
		StudentID:   id,
		FirstName:   "Jane",
		LastName:    "Doe",
		Hours:       "1,5",
		Grade:       "72",
		Verdict:     verdict,
	}
}

func archiveSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Version: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
		Records: []domain.NormalizedRecord{
			record(catalog.Old, day(6, 1), "jane@school.edu", "e100", "Failed"),
			record(catalog.Main, day(1, 10), "jane@school.edu", "e100", ""),
			record(catalog.Main, day(1, 27), "jane@school.edu", "e100", "Passed"),
			record(catalog.Main, day(1, 27), "rick@school.edu", "e200", "Failed"),
		},
		Files: []domain.SourceFile{{CourseType: catalog.Main, Name: "a.xlsx", Rows: 2}},
	}
}
