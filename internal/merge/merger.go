package merge

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	apperrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/infrastructure"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

var tracer = otel.Tracer("github.com/genai-ESCP/Backoffice-DataAnalytics/internal/merge")

// Gradebook columns removed before the merge.
var droppedColumns = map[string]bool{"Student ID": true, "Last Access": true, "Availability": true}

// finalOrder leads the merged sheet; other columns follow in their original
// relative order.
var finalOrder = []string{ColLastName, ColFirstName, ColStudentID, ColEmail, ColVerdict, ColHours, ColGrade}

// Merger joins gradebooks with hours exports.
type Merger struct {
	hoursSkipRows int
	logger        *slog.Logger
	metrics       *infrastructure.ReconMetrics
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records merge outcomes.
func WithMetrics(metrics *infrastructure.ReconMetrics) Option {
	return func(m *Merger) { m.metrics = metrics }
}

// WithHoursSkipRows sets how many metadata rows precede the hours header.
func WithHoursSkipRows(n int) Option {
	return func(m *Merger) {
		if n >= 0 {
			m.hoursSkipRows = n
		}
	}
}

// New creates a Merger.
func New(opts ...Option) *Merger {
	m := &Merger{hoursSkipRows: config.HoursSkipRows, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = infrastructure.WithComponent(m.logger, "merge")
	return m
}

// Process merges the request and renders the workbook. Nothing is produced
// on failure.
func (m *Merger) Process(ctx context.Context, req domain.MergeRequest) (out *domain.MergeOutput, err error) {
	ctx, span := tracer.Start(ctx, "merge.Process")
	defer span.End()
	start := time.Now()
	defer func() {
		m.metrics.RecordMerge(ctx, err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			m.logger.WarnContext(ctx, "Extraction generation failed",
				slog.String("gradebook", req.GradebookName),
				slog.String("hours", req.HoursName),
				slog.String("error", err.Error()))
		}
	}()

	result, err := m.Merge(ctx, req)
	if err != nil {
		return nil, err
	}
	content, err := Render(result)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("merge.target_sheet", result.TargetSheet),
		attribute.Int("merge.rows", result.RowCount),
	)
	m.logger.InfoContext(ctx, "Extraction generated",
		slog.String("output", req.OutputName),
		slog.String("target_sheet", result.TargetSheet),
		slog.Int("rows", result.RowCount),
		slog.Duration("duration", time.Since(start)))

	return &domain.MergeOutput{FileName: req.OutputName, Content: content, RowCount: result.RowCount}, nil
}

// Merge builds the merged target sheet without rendering it.
func (m *Merger) Merge(ctx context.Context, req domain.MergeRequest) (*domain.MergeResult, error) {
	sheets, err := ReadGradebook(req.GradebookName, req.Gradebook)
	if err != nil {
		return nil, err
	}
	target, err := pickTarget(sheets, req.TargetSheet)
	if err != nil {
		return nil, err
	}

	hoursSheet, err := ReadHoursExport(req.HoursName, req.Hours, m.hoursSkipRows)
	if err != nil {
		return nil, err
	}
	mapping, err := ResolveHoursColumns(hoursSheet.Header)
	if err != nil {
		return nil, err
	}
	lookup := BuildHoursLookup(hoursSheet, mapping)

	grades, err := prepareGradebook(sheets[target])
	if err != nil {
		return nil, err
	}
	merged := joinHours(grades, lookup)

	result := &domain.MergeResult{
		TargetSheet: grades.Name,
		Merged:      reorder(merged),
		Mapping:     mapping,
		RowCount:    len(merged.Rows),
	}
	for i, s := range sheets {
		if i != target {
			result.Passthrough = append(result.Passthrough, s)
		}
	}

	m.logger.DebugContext(ctx, "Hours columns resolved",
		slog.String("code", mapping.Code),
		slog.String("first", mapping.First),
		slog.String("last", mapping.Last),
		slog.String("email", mapping.Email),
		slog.String("hours", mapping.Hours))
	return result, nil
}

// pickTarget returns the index of the requested sheet, falling back to
// Sheet1.
func pickTarget(sheets []domain.Sheet, name string) (int, error) {
	fallback := -1
	names := make([]string, 0, len(sheets))
	for i, s := range sheets {
		if s.Name == name {
			return i, nil
		}
		if s.Name == LegacySheetName {
			fallback = i
		}
		names = append(names, s.Name)
	}
	if fallback >= 0 {
		return fallback, nil
	}
	return -1, apperrors.NewStructureError("sheet "+strconv.Quote(name)+" not found", nil).
		WithContext("available_sheets", names)
}

// prepareGradebook drops the unused columns and renames the username column
// to Student ID.
func prepareGradebook(s domain.Sheet) (domain.Sheet, error) {
	var keep []int
	for i, h := range s.Header {
		if !droppedColumns[h] {
			keep = append(keep, i)
		}
	}
	out := project(s, keep)

	user := -1
	for i, h := range out.Header {
		if textnorm.NormalizeKey(h) == "username" {
			user = i
			break
		}
	}
	if user < 0 {
		for i, h := range out.Header {
			if strings.Contains(textnorm.NormalizeKey(h), "username") {
				user = i
				break
			}
		}
	}
	if user < 0 {
		return domain.Sheet{}, apperrors.NewStructureError("gradebook has no Username column", nil).
			WithContext("missing", []string{"Username"}).
			WithContext("available", out.Header)
	}
	out.Header[user] = ColStudentID

	var missing []string
	for _, c := range []string{ColFirstName, ColLastName} {
		if out.ColumnIndex(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return domain.Sheet{}, apperrors.NewStructureError("gradebook is missing name columns", nil).
			WithContext("missing", missing).
			WithContext("available", out.Header)
	}
	return out, nil
}

// joinHours fills Hours in Course and Email from the lookup and makes sure a
// Verdict column exists.
func joinHours(s domain.Sheet, lookup *HoursLookup) domain.Sheet {
	s = withColumn(s, ColHours)
	s = withColumn(s, ColEmail)
	s = withColumn(s, ColVerdict)

	id := s.ColumnIndex(ColStudentID)
	first := s.ColumnIndex(ColFirstName)
	last := s.ColumnIndex(ColLastName)
	hoursCol := s.ColumnIndex(ColHours)
	emailCol := s.ColumnIndex(ColEmail)

	for _, row := range s.Rows {
		hours, email := lookup.Match(at(row, id), at(row, first), at(row, last))
		row[hoursCol] = strconv.FormatFloat(hours, 'f', -1, 64)
		row[emailCol] = email
	}
	s.Header = textnorm.DedupeHeaders(s.Header)
	return s
}

// withColumn appends an empty column unless it already exists.
func withColumn(s domain.Sheet, name string) domain.Sheet {
	if s.ColumnIndex(name) >= 0 {
		return s
	}
	s.Header = append(s.Header, name)
	for i := range s.Rows {
		s.Rows[i] = append(s.Rows[i], "")
	}
	return s
}

func reorder(s domain.Sheet) domain.Sheet {
	var idx []int
	used := make(map[int]bool)
	for _, c := range finalOrder {
		if i := s.ColumnIndex(c); i >= 0 {
			idx = append(idx, i)
			used[i] = true
		}
	}
	for i := range s.Header {
		if !used[i] {
			idx = append(idx, i)
		}
	}
	return project(s, idx)
}

// project returns a copy of s holding only the columns at idx, in that order.
func project(s domain.Sheet, idx []int) domain.Sheet {
	out := domain.Sheet{Name: s.Name, Header: make([]string, len(idx))}
	for j, i := range idx {
		out.Header[j] = s.Header[i]
	}
	out.Rows = make([][]string, len(s.Rows))
	for r, row := range s.Rows {
		nr := make([]string, len(idx))
		for j, i := range idx {
			nr[j] = at(row, i)
		}
		out.Rows[r] = nr
	}
	return out
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
