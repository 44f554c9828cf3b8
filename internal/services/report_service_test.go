package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/status"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

func newReportService(snaps SnapshotSource, reg RegistrySource, exp SnapshotExporter) *ReportService {
	return NewReportService(snaps, reg, exp, status.NewEngine(catalog, quietLogger(), nil), catalog, quietLogger())
}

func TestSearchStudent(t *testing.T) {
	reg := &fakeRegistry{
		dir: &domain.StudentDirectory{Entries: []domain.StudentExtra{
			{StudentIDE: "e100", EmailNorm: "jane@school.edu", Campus: "Paris", LicenseStatus: "Active"},
		}},
		certified: domain.NewCertifiedEmailSet("jane@school.edu"),
	}
	svc := newReportService(&fakeSnapshots{snap: archiveSnapshot()}, reg, nil)

	st, err := svc.SearchStudent(context.Background(), "  Jane@School.edu ", "")
	require.NoError(t, err)

	require.NotNil(t, st.Identity)
	assert.Equal(t, "Jane", st.Identity.FirstName)
	require.NotNil(t, st.Extra)
	assert.Equal(t, "Paris", st.Extra.Campus)
	assert.True(t, st.Certified)
	assert.Len(t, st.Timeline, 3)
	assert.Equal(t, 3, st.MatchedRows)
}

func TestSearchStudentCourseFilter(t *testing.T) {
	svc := newReportService(&fakeSnapshots{snap: archiveSnapshot()}, nil, nil)

	st, err := svc.SearchStudent(context.Background(), "jane@school.edu", catalog.Old)
	require.NoError(t, err)
	require.Len(t, st.Timeline, 1)
	assert.Equal(t, catalog.Old, st.Timeline[0].CourseType)
}

func TestSearchStudentErrors(t *testing.T) {
	svc := newReportService(&fakeSnapshots{snap: archiveSnapshot()}, nil, nil)

	_, err := svc.SearchStudent(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = svc.SearchStudent(context.Background(), "nobody@school.edu", "")
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)

	failing := newReportService(&fakeSnapshots{err: errors.New("disk gone")}, nil, nil)
	_, err = failing.SearchStudent(context.Background(), "jane@school.edu", "")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeStorage, appErr.Type)
}

func TestSearchStudentRegistryFailureDegrades(t *testing.T) {
	reg := &fakeRegistry{err: errors.New("locked by another process")}
	svc := newReportService(&fakeSnapshots{snap: archiveSnapshot()}, reg, nil)

	st, err := svc.SearchStudent(context.Background(), "e100", "")
	require.NoError(t, err)
	assert.Nil(t, st.Extra)
	assert.False(t, st.Certified)
}

func TestSearchStudentNeedsReview(t *testing.T) {
	snap := archiveSnapshot()
	snap.Records = append(snap.Records, record(catalog.Main, day(1, 27), "jane@school.edu", "e999", ""))
	svc := newReportService(&fakeSnapshots{snap: snap}, nil, nil)

	st, err := svc.SearchStudent(context.Background(), "jane@school.edu", catalog.Main)
	require.NoError(t, err)
	assert.True(t, st.NeedsReview)
	assert.Nil(t, st.Identity)
	assert.Empty(t, st.Timeline)
}

func TestSnapshotInfo(t *testing.T) {
	svc := newReportService(&fakeSnapshots{snap: archiveSnapshot()}, nil, nil)

	info, err := svc.SnapshotInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, info.RecordCount)
	assert.Equal(t, []string{catalog.Old, catalog.Main}, info.Courses)
	assert.Len(t, info.Files, 1)
}

func TestRecords(t *testing.T) {
	svc := newReportService(&fakeSnapshots{snap: archiveSnapshot()}, nil, nil)

	tests := []struct {
		name          string
		course        string
		offset, limit int
		wantTotal     int
		wantLen       int
	}{
		{name: "all", limit: 0, wantTotal: 4, wantLen: 4},
		{name: "first page", limit: 3, wantTotal: 4, wantLen: 3},
		{name: "second page", offset: 3, limit: 3, wantTotal: 4, wantLen: 1},
		{name: "past the end", offset: 10, limit: 3, wantTotal: 4, wantLen: 0},
		{name: "one course", course: catalog.Main, wantTotal: 3, wantLen: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.Records(context.Background(), tt.course, tt.offset, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, page.Total)
			assert.Len(t, page.Records, tt.wantLen)
		})
	}
}

func TestOverview(t *testing.T) {
	reg := &fakeRegistry{certified: domain.NewCertifiedEmailSet("jane@school.edu")}
	svc := newReportService(&fakeSnapshots{snap: archiveSnapshot()}, reg, nil)

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ov.StudentsByCourse[catalog.Main])
	assert.Equal(t, 1, ov.PassedByCourse[catalog.Main])
	assert.Equal(t, 1, ov.VerdictDistribution["Failed"])
}

func TestExport(t *testing.T) {
	exp := &fakeExporter{}
	svc := newReportService(&fakeSnapshots{snap: archiveSnapshot()}, nil, exp)

	path, err := svc.Export(context.Background(), ExportSnapshot)
	require.NoError(t, err)
	assert.Equal(t, "/reports/snapshot.csv", path)
	assert.Equal(t, 1, exp.snapshots)

	path, err = svc.Export(context.Background(), ExportKPIs)
	require.NoError(t, err)
	assert.Equal(t, "/reports/course_kpis.csv", path)
	assert.NotEmpty(t, exp.kpis)

	_, err = svc.Export(context.Background(), "pdf")
	assert.ErrorIs(t, err, ErrUnknownExport)

	exp.err = errors.New("read-only file system")
	_, err = svc.Export(context.Background(), ExportSnapshot)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ExportSnapshot, appErr.Context["kind"])

	noExporter := newReportService(&fakeSnapshots{snap: archiveSnapshot()}, nil, nil)
	_, err = noExporter.Export(context.Background(), ExportSnapshot)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}
