package ingest

import (
	"strings"
	"time"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/columns"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

var ingestResolver = columns.NewResolver(columns.IngestRules...)

// NormalizeRows maps the raw rows of one extraction workbook onto records.
// Rows with neither an email nor a student ID are dropped.
func NormalizeRows(course, fileName string, extractedAt *time.Time, rows [][]string, headerScan int) []domain.NormalizedRecord {
	if len(rows) == 0 {
		return nil
	}

	table := PromoteHeader(rows, columns.DetectHeaderRow(rows, headerScan))
	mapping := ingestResolver.Resolve(table.Header)

	idx := func(f columns.Field) int { return table.Column(mapping.Column(f)) }
	var (
		emailCol   = idx(columns.FieldEmail)
		idCol      = idx(columns.FieldStudentID)
		firstCol   = idx(columns.FieldFirstName)
		lastCol    = idx(columns.FieldLastName)
		hoursCol   = idx(columns.FieldHours)
		gradeCol   = idx(columns.FieldGrade)
		verdictCol = idx(columns.FieldVerdict)
	)

	out := make([]domain.NormalizedRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		var email string
		if emailCol >= 0 {
			email = textnorm.NormalizeEmail(row[emailCol])
		} else {
			email = textnorm.FirstEmail(row)
		}

		rec := domain.NormalizedRecord{
			CourseType:  course,
			FileName:    fileName,
			ExtractedAt: extractedAt,
			EmailNorm:   email,
			StudentID:   cell(row, idCol),
			FirstName:   cell(row, firstCol),
			LastName:    cell(row, lastCol),
			Hours:       cell(row, hoursCol),
			Grade:       cell(row, gradeCol),
			Verdict:     cell(row, verdictCol),
		}
		if !rec.HasIdentity() {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
