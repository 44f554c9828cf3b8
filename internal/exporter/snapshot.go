package exporter

import (
	"strconv"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

// SnapshotHeaders are the columns of the normalized snapshot export.
var SnapshotHeaders = []string{
	"course_type", "file_name", "extracted_at", "email_norm", "student_id",
	"first_name", "last_name", "hours", "grade", "verdict",
}

// KPIHeaders are the columns of the course KPI export.
var KPIHeaders = []string{
	"course", "label", "students", "passed", "pass_rate", "avg_hours",
	"avg_grade", "median_hours", "inactive", "grade_delta", "cert_rate",
}

// SnapshotRecords flattens snapshot rows in snapshot order.
func SnapshotRecords(snap *domain.Snapshot) [][]string {
	if snap == nil {
		return nil
	}
	out := make([][]string, 0, len(snap.Records))
	for _, r := range snap.Records {
		out = append(out, []string{
			r.CourseType, r.FileName, formatDate(r.ExtractedAt), r.EmailNorm, r.StudentID,
			r.FirstName, r.LastName, r.Hours, r.Grade, r.Verdict,
		})
	}
	return out
}

// KPIRecords flattens course KPIs. Missing values are empty cells.
func KPIRecords(kpis []domain.CourseKPI) [][]string {
	out := make([][]string, 0, len(kpis))
	for _, k := range kpis {
		out = append(out, []string{
			k.Course,
			k.Label,
			strconv.Itoa(k.Students),
			strconv.Itoa(k.Passed),
			formatOptional(k.PassRate),
			formatOptional(k.AvgHours),
			formatOptional(k.AvgGrade),
			formatOptional(k.MedianHours),
			strconv.Itoa(k.Inactive),
			formatOptional(k.GradeDelta),
			formatOptional(k.CertRate),
		})
	}
	return out
}

// ExportSnapshot writes the normalized snapshot to the reports directory and
// returns the file path.
func (w *CSVWriter) ExportSnapshot(snap *domain.Snapshot) (string, error) {
	return w.WriteSimpleCSV(config.SnapshotExportName, SnapshotHeaders, SnapshotRecords(snap))
}

// ExportCourseKPIs writes the course KPIs to the reports directory and
// returns the file path.
func (w *CSVWriter) ExportCourseKPIs(kpis []domain.CourseKPI) (string, error) {
	return w.WriteSimpleCSV(config.CourseKPIExportName, KPIHeaders, KPIRecords(kpis))
}
